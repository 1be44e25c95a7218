package pipeline

import (
	"fmt"
	"sort"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
)

type Severity string

const (
	SeverityValid   Severity = "valid"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type ValidationResult struct {
	Level   Severity `json:"level"`
	Message string   `json:"message,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{Level: SeverityValid}
}

func invalid(level Severity, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Level: level, Message: fmt.Sprintf(format, args...)}
}

// MaxAIBlocks bounds how many AI-generation blocks one pipeline may carry.
const MaxAIBlocks = 3

// Validate statically checks that a pipeline configuration is internally
// consistent and resolvable. Pure function, no I/O; it runs at
// configuration-save time and again right before execution. The first
// failing check short-circuits with its result.
func Validate(pipeline []types.PipelineBlock, inputCollection types.InputCollection) ValidationResult {
	ordered := append([]types.PipelineBlock(nil), pipeline...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	byID := make(map[string]types.PipelineBlock, len(ordered))
	var aiBlocks []types.PipelineBlock
	for _, block := range ordered {
		byID[block.ID] = block
		if block.BlockName == types.BlockAIGeneration {
			aiBlocks = append(aiBlocks, block)
		}
	}

	if len(aiBlocks) == 0 {
		return invalid(SeverityWarning, "pipeline has no AI generation block; it will run but produce no generated image")
	}

	if len(aiBlocks) > MaxAIBlocks {
		return invalid(SeverityError, "pipeline has %d AI generation blocks; at most %d are allowed", len(aiBlocks), MaxAIBlocks)
	}

	for _, block := range aiBlocks {
		if result := validateAIBlock(block, byID, inputCollection); result.Level == SeverityError {
			return result
		}
	}

	// Coherence note, not an error: a text-only model placed after another AI
	// block cannot incorporate the prior block's image.
	for i, block := range aiBlocks {
		if i == 0 {
			continue
		}
		cfg := block.AIGeneration
		if cfg == nil || cfg.ModelID == "" {
			continue
		}
		model, err := registry.GetModel(cfg.ModelID)
		if err == nil && model.SupportsOnlyNone() {
			return invalid(SeverityInfo,
				"block %s uses model %s which ignores image input; it will not incorporate the previous AI block's output", block.ID, model.ID)
		}
	}

	return valid()
}

func validateAIBlock(block types.PipelineBlock, byID map[string]types.PipelineBlock, inputCollection types.InputCollection) ValidationResult {
	cfg := block.AIGeneration
	if cfg == nil || cfg.ModelID == "" {
		return valid()
	}

	model, err := registry.GetModel(cfg.ModelID)
	if err != nil {
		return invalid(SeverityError, "block %s references unknown model %s", block.ID, cfg.ModelID)
	}

	mode := cfg.ImageUsageMode
	if mode == "" {
		mode = types.ImageUsageNone
	}

	if !model.Supports(mode) {
		return invalid(SeverityError, "model %s does not support image usage mode %q", model.ID, mode)
	}

	if mode == types.ImageUsageNone {
		return valid()
	}

	if cfg.ImageSource == "" {
		return invalid(SeverityError, "block %s uses image mode %q but no image source is set", block.ID, mode)
	}

	switch cfg.ImageSource {
	case types.ImageSourceSelfie:
		if !inputCollection.HasSelfie() {
			return invalid(SeverityError, "block %s uses the participant selfie but the form collects none", block.ID)
		}

	case types.ImageSourceURL, types.ImageSourceUpload:
		if cfg.ImageURL == "" {
			return invalid(SeverityError, "block %s uses an image URL but none is configured", block.ID)
		}

	case types.ImageSourceAIBlockOutput:
		if cfg.SourceBlockID == "" {
			return invalid(SeverityError, "block %s references another block's output but sourceBlockId is missing", block.ID)
		}
		source, ok := byID[cfg.SourceBlockID]
		if !ok {
			return invalid(SeverityError, "block %s references unknown block %s", block.ID, cfg.SourceBlockID)
		}
		if source.Order >= block.Order {
			return invalid(SeverityError, "block %s references block %s which does not execute before it", block.ID, cfg.SourceBlockID)
		}

	default:
		return invalid(SeverityError, "block %s has unknown image source %q", block.ID, cfg.ImageSource)
	}

	return valid()
}
