// Package pipeline validates and executes an animation's block pipeline for
// a single participant submission.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/pipeline/blocks"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/providers"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"go.uber.org/zap"
)

// Executor runs blocks strictly in ascending order. There is no parallelism
// within one pipeline: later blocks may consume earlier blocks' outputs.
type Executor struct {
	deps   *blocks.Deps
	logger *zap.Logger
}

func NewExecutor(deps *blocks.Deps, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{deps: deps, logger: logger}
}

// Execute runs the whole pipeline for one submission. The first block failure
// aborts the remainder; the partial block results stay in the report for
// diagnostics. Retries happen only inside block-level provider calls, never
// at the pipeline level.
func (e *Executor) Execute(ctx context.Context, pipeline []types.PipelineBlock, participant types.ParticipantData) types.PipelineResult {
	start := time.Now()

	ordered := append([]types.PipelineBlock(nil), pipeline...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	ec := blocks.NewExecContext(participant)
	if err := e.loadSelfie(ctx, &participant, ec); err != nil {
		return types.PipelineResult{
			Err:           types.NewGenerationError(types.ErrCodeInternal, "failed to load selfie: %v", err),
			ExecutionTime: time.Since(start),
		}
	}

	results := make([]types.BlockResult, 0, len(ordered))
	for i := range ordered {
		block := &ordered[i]
		blockStart := time.Now()

		output, err := e.executeBlock(ctx, block, ec)
		result := types.BlockResult{
			BlockID:   block.ID,
			BlockName: block.BlockName,
			Success:   err == nil,
			Duration:  time.Since(blockStart),
		}

		if err != nil {
			result.Error = err.Error()
			results = append(results, result)

			genErr := classifyBlockError(block, err)
			e.logger.Warn("pipeline block failed",
				zap.String("block", block.ID),
				zap.String("code", string(genErr.Code)),
				zap.Error(err))

			return types.PipelineResult{
				Err:           genErr,
				BlockResults:  results,
				FinalPrompt:   ec.FinalPrompt,
				ExecutionTime: time.Since(start),
			}
		}

		if output != nil && output.Image != nil {
			ec.Image = output.Image
		}
		results = append(results, result)
	}

	// A pipeline without AI blocks still succeeds when earlier blocks left a
	// usable buffer; the validator already flags that case as a warning.
	return types.PipelineResult{
		Success:       true,
		FinalImage:    ec.Image,
		FinalPrompt:   ec.FinalPrompt,
		BlockResults:  results,
		ExecutionTime: time.Since(start),
	}
}

func (e *Executor) executeBlock(ctx context.Context, block *types.PipelineBlock, ec *blocks.ExecContext) (*blocks.Output, error) {
	executor, err := blocks.ForBlock(block, e.deps)
	if err != nil {
		return nil, err
	}

	return executor.Execute(ctx, block, ec)
}

// loadSelfie decodes the submitted selfie into the execution context. It also
// seeds the running buffer so a leading crop-resize block has something to
// transform.
func (e *Executor) loadSelfie(ctx context.Context, participant *types.ParticipantData, ec *blocks.ExecContext) error {
	switch {
	case participant.SelfieBase64 != "":
		encoded := participant.SelfieBase64
		if idx := strings.Index(encoded, ","); idx != -1 && strings.HasPrefix(encoded, "data:") {
			encoded = encoded[idx+1:]
		}
		selfie, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("invalid selfie encoding: %w", err)
		}
		ec.Selfie = selfie

	case participant.SelfieURL != "":
		selfie, err := e.fetch(ctx, participant.SelfieURL)
		if err != nil {
			return err
		}
		ec.Selfie = selfie

	default:
		return nil
	}

	ec.Image = ec.Selfie
	return nil
}

func (e *Executor) fetch(ctx context.Context, url string) ([]byte, error) {
	client := e.deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch selfie: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// classifyBlockError turns a block failure into the structured error recorded
// on the generation.
func classifyBlockError(block *types.PipelineBlock, err error) *types.GenerationError {
	var genErr *types.GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	var provErr *providers.Error
	if errors.As(err, &provErr) {
		code := types.ErrCodeProvider
		if provErr.IsRateLimit() {
			code = types.ErrCodeRateLimit
		}
		return types.NewGenerationError(code, "block %s: %s", block.ID, provErr.Message)
	}

	return types.NewGenerationError(types.ErrCodeInternal, "block %s: %v", block.ID, err)
}
