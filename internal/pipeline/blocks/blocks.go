// Package blocks contains one executor per pipeline block kind. Each executor
// is a transform over the shared execution context: it may replace the
// running image buffer, publish variables for later blocks, or call an
// external provider, but it never touches persistence.
package blocks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/providers"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/retry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"go.uber.org/zap"
)

// ExecContext carries the state threaded through a pipeline run. Outputs is
// written strictly in execution order; a block only ever reads entries of
// blocks that ran before it.
type ExecContext struct {
	// Image is the running buffer handed from block to block.
	Image []byte
	// Selfie is the participant's decoded selfie, when one was submitted.
	Selfie []byte
	// Outputs caches each AI block's result by block id for downstream
	// reference resolution.
	Outputs map[string][]byte
	// Vars are the template variables available to prompt substitution.
	Vars map[string]string
	// FinalPrompt records the last prompt actually sent to a provider.
	FinalPrompt string

	Participant types.ParticipantData
}

func NewExecContext(participant types.ParticipantData) *ExecContext {
	vars := map[string]string{
		"firstName": participant.FirstName,
		"lastName":  participant.LastName,
		"email":     participant.Email,
	}
	for key, value := range participant.Answers {
		vars[key] = value
	}

	return &ExecContext{
		Outputs:     make(map[string][]byte),
		Vars:        vars,
		Participant: participant,
	}
}

// Output is what a block hands back: an optional replacement for the running
// buffer plus free-form metadata for diagnostics.
type Output struct {
	Image    []byte
	Metadata map[string]string
}

// Executor is the common block contract.
type Executor interface {
	Execute(ctx context.Context, block *types.PipelineBlock, ec *ExecContext) (*Output, error)
}

// Deps bundles the collaborators AI-generation blocks need. ProviderFor is
// swappable so tests can stub the backend.
type Deps struct {
	Config      *config.Config
	Retry       retry.Options
	HTTPClient  *http.Client
	Logger      *zap.Logger
	ProviderFor func(model registry.AIModel) (providers.ImageProvider, error)
}

func (d *Deps) providerFor(model registry.AIModel) (providers.ImageProvider, error) {
	if d.ProviderFor != nil {
		return d.ProviderFor(model)
	}
	return providers.ForModel(d.Config, model)
}

func (d *Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

// ForBlock returns the executor matching the block kind.
func ForBlock(block *types.PipelineBlock, deps *Deps) (Executor, error) {
	switch block.BlockName {
	case types.BlockCropResize:
		return &CropResize{}, nil
	case types.BlockAIGeneration:
		return &AIGeneration{deps: deps}, nil
	case types.BlockFilters:
		return &Filters{}, nil
	case types.BlockQuizScoring:
		return &QuizScoring{}, nil
	default:
		return nil, fmt.Errorf("unsupported block: %s", block.BlockName)
	}
}
