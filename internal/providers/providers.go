// Package providers contains one adapter per external image-generation
// backend. Adapters translate vendor request/response shapes into a uniform
// bytes-in/bytes-out contract and surface typed errors so the retry policy
// can classify failures without vendor knowledge.
package providers

import (
	"context"
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
)

// GenerateOptions is the provider-agnostic options bag for one call.
type GenerateOptions struct {
	AspectRatio string
	Quality     string
}

// ImageProvider is the single capability every backend exposes: a prompt plus
// zero or more reference image buffers in, raw image bytes out. Exactly one
// outbound HTTP call per invocation; retries belong to the caller.
type ImageProvider interface {
	Generate(ctx context.Context, prompt string, refs [][]byte, opts GenerateOptions) ([]byte, error)
	Name() string
}

// Error is the typed provider failure. Status carries the upstream HTTP
// status code, Code and Type the vendor's error identifiers.
type Error struct {
	Provider  string
	Status    int
	Code      string
	Type      string
	Message   string
	RateLimit bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (status=%d, code=%s)", e.Provider, e.Message, e.Status, e.Code)
}

func (e *Error) StatusCode() int { return e.Status }

func (e *Error) IsRateLimit() bool {
	return e.RateLimit || e.Status == 429 || e.Code == "rate_limit_exceeded" || e.Type == "rate_limit"
}

// sizeByRatio maps the supported aspect ratios to native provider sizes. The
// mapping is total: anything unlisted falls back to square.
var sizeByRatio = map[string]string{
	"1:1": "1024x1024",
	"2:3": "1024x1536",
	"3:2": "1536x1024",
}

const defaultSize = "1024x1024"

// SizeForAspectRatio deterministically resolves an aspect ratio to a native
// size string, defaulting to 1024x1024 for unsupported ratios.
func SizeForAspectRatio(ratio string) string {
	if size, ok := sizeByRatio[ratio]; ok {
		return size
	}
	return defaultSize
}

// ForModel selects the adapter matching the model's provider field.
func ForModel(cfg *config.Config, model registry.AIModel) (ImageProvider, error) {
	switch model.Provider {
	case registry.ProviderOpenAI:
		if cfg.OpenAI == nil || cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai api key is not configured")
		}
		return NewOpenAIProvider(cfg.OpenAI, model), nil
	case registry.ProviderGemini:
		if cfg.Gemini == nil || cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini api key is not configured")
		}
		return NewGeminiProvider(cfg.Gemini, model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", model.Provider)
	}
}
