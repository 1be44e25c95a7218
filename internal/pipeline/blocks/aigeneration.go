package blocks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"unicode/utf8"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/providers"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/retry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/utils/templateutil"
	"go.uber.org/zap"
)

// AIGeneration resolves the block's image inputs, substitutes the prompt
// template, and calls the model's provider through the retry policy. The
// result becomes both the running buffer and this block's cache entry.
type AIGeneration struct {
	deps *Deps
}

func (e *AIGeneration) Execute(ctx context.Context, block *types.PipelineBlock, ec *ExecContext) (*Output, error) {
	cfg := block.AIGeneration
	if cfg == nil {
		return nil, fmt.Errorf("ai-generation block %s has no config", block.ID)
	}

	model, err := registry.GetModel(cfg.ModelID)
	if err != nil {
		return nil, err
	}

	provider, err := e.deps.providerFor(model)
	if err != nil {
		return nil, err
	}

	refs, err := e.resolveImageInputs(ctx, cfg, ec)
	if err != nil {
		return nil, err
	}

	finalPrompt := templateutil.Substitute(cfg.PromptTemplate, ec.Vars)
	if model.MaxPromptLen > 0 && len(finalPrompt) > model.MaxPromptLen {
		// Cut on a rune boundary; substituted names may be multi-byte.
		cut := model.MaxPromptLen
		for cut > 0 && !utf8.RuneStart(finalPrompt[cut]) {
			cut--
		}
		finalPrompt = finalPrompt[:cut]
	}
	ec.FinalPrompt = finalPrompt

	e.deps.logger().Debug("calling image provider",
		zap.String("block", block.ID),
		zap.String("model", model.ID),
		zap.Int("references", len(refs)))

	opts := providers.GenerateOptions{AspectRatio: cfg.AspectRatio, Quality: cfg.Quality}
	image, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return provider.Generate(ctx, finalPrompt, refs, opts)
	}, e.deps.Retry)
	if err != nil {
		return nil, err
	}

	ec.Outputs[block.ID] = image

	return &Output{
		Image: image,
		Metadata: map[string]string{
			"model":       model.ID,
			"finalPrompt": finalPrompt,
		},
	}, nil
}

// resolveImageInputs collects the primary image (per ImageSource) followed by
// the configured reference images in priority order. A usage mode of "none"
// sends no image at all.
func (e *AIGeneration) resolveImageInputs(ctx context.Context, cfg *types.AIGenerationConfig, ec *ExecContext) ([][]byte, error) {
	if cfg.ImageUsageMode == "" || cfg.ImageUsageMode == types.ImageUsageNone {
		return nil, nil
	}

	var refs [][]byte

	primary, err := e.resolveSource(ctx, cfg.ImageSource, cfg.ImageURL, cfg.SourceBlockID, ec)
	if err != nil {
		return nil, err
	}
	refs = append(refs, primary)

	extra := append([]types.ReferenceImage(nil), cfg.ReferenceImages...)
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].Order < extra[j].Order })

	for _, ref := range extra {
		buffer, err := e.resolveSource(ctx, ref.Source, ref.URL, ref.SourceBlockID, ec)
		if err != nil {
			return nil, fmt.Errorf("reference image %s: %w", ref.Name, err)
		}
		refs = append(refs, buffer)
	}

	return refs, nil
}

func (e *AIGeneration) resolveSource(ctx context.Context, source types.ImageSource, url, sourceBlockID string, ec *ExecContext) ([]byte, error) {
	switch source {
	case types.ImageSourceSelfie:
		if len(ec.Selfie) == 0 {
			return nil, fmt.Errorf("participant submitted no selfie")
		}
		return ec.Selfie, nil

	case types.ImageSourceURL, types.ImageSourceUpload:
		if url == "" {
			return nil, fmt.Errorf("no image url configured")
		}
		return e.fetch(ctx, url)

	case types.ImageSourceAIBlockOutput:
		output, ok := ec.Outputs[sourceBlockID]
		if !ok {
			return nil, fmt.Errorf("block %s produced no output yet", sourceBlockID)
		}
		return output, nil

	default:
		return nil, fmt.Errorf("unknown image source: %s", source)
	}
}

func (e *AIGeneration) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.deps.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

var _ Executor = (*AIGeneration)(nil)
