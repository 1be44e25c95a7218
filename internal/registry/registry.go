// Package registry holds the static catalogue of image models the engine can
// dispatch to, with the usage modes each one supports.
package registry

import (
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// AIModel describes one model's capabilities. Entries are immutable; callers
// get copies.
type AIModel struct {
	ID             string
	Provider       string
	SupportedModes []types.ImageUsageMode
	SupportsEdit   bool
	MaxSize        int
	MaxPromptLen   int
}

func (m AIModel) Supports(mode types.ImageUsageMode) bool {
	for _, supported := range m.SupportedModes {
		if supported == mode {
			return true
		}
	}
	return false
}

// SupportsOnlyNone reports whether the model ignores image input entirely.
func (m AIModel) SupportsOnlyNone() bool {
	return len(m.SupportedModes) == 1 && m.SupportedModes[0] == types.ImageUsageNone
}

var catalogue = map[string]AIModel{
	"gpt-image-1": {
		ID:             "gpt-image-1",
		Provider:       ProviderOpenAI,
		SupportedModes: []types.ImageUsageMode{types.ImageUsageNone, types.ImageUsageReference, types.ImageUsageEdit},
		SupportsEdit:   true,
		MaxSize:        1536,
		MaxPromptLen:   32000,
	},
	"dall-e-3": {
		ID:             "dall-e-3",
		Provider:       ProviderOpenAI,
		SupportedModes: []types.ImageUsageMode{types.ImageUsageNone},
		SupportsEdit:   false,
		MaxSize:        1792,
		MaxPromptLen:   4000,
	},
	"gemini-2.5-flash-image": {
		ID:             "gemini-2.5-flash-image",
		Provider:       ProviderGemini,
		SupportedModes: []types.ImageUsageMode{types.ImageUsageNone, types.ImageUsageReference},
		SupportsEdit:   false,
		MaxSize:        1024,
		MaxPromptLen:   8000,
	},
}

var ErrModelNotFound = fmt.Errorf("model not found in registry")

func GetModel(id string) (AIModel, error) {
	model, ok := catalogue[id]
	if !ok {
		return AIModel{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return model, nil
}

func MustGetModel(id string) AIModel {
	model, err := GetModel(id)
	if err != nil {
		panic(err)
	}
	return model
}

func ListModels() []AIModel {
	models := make([]AIModel, 0, len(catalogue))
	for _, m := range catalogue {
		models = append(models, m)
	}
	return models
}
