package blocks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
)

// QuizScoring sums points per profile over the participant's answers and
// publishes the winning profile as template variables, so a later AI block
// can steer its prompt with {{quizProfile}} or {{quizProfilePrompt}}.
// Ties break in favor of the profile declared first.
type QuizScoring struct{}

func (e *QuizScoring) Execute(ctx context.Context, block *types.PipelineBlock, ec *ExecContext) (*Output, error) {
	cfg := block.QuizScoring
	if cfg == nil {
		return nil, fmt.Errorf("quiz-scoring block %s has no config", block.ID)
	}
	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("quiz-scoring block %s has no profiles", block.ID)
	}

	scores := make(map[string]int, len(cfg.Profiles))
	for _, mapping := range cfg.Mappings {
		answer, ok := ec.Participant.Answers[mapping.QuestionID]
		if !ok || answer != mapping.OptionID {
			continue
		}
		scores[mapping.ProfileID] += mapping.Points
	}

	winner := cfg.Profiles[0]
	best := scores[winner.ID]
	for _, profile := range cfg.Profiles[1:] {
		if scores[profile.ID] > best {
			winner = profile
			best = scores[profile.ID]
		}
	}

	ec.Vars["quizProfile"] = winner.Name
	ec.Vars["quizProfilePrompt"] = winner.PromptValue

	return &Output{
		Metadata: map[string]string{
			"profile": winner.Name,
			"score":   strconv.Itoa(best),
		},
	}, nil
}

var _ Executor = (*QuizScoring)(nil)
