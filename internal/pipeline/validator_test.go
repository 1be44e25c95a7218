package pipeline

import (
	"testing"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/stretchr/testify/assert"
)

func selfieCollection() types.InputCollection {
	return types.InputCollection{
		Elements: []types.InputElement{
			{ID: "selfie-1", Type: "selfie"},
			{ID: "q1", Type: "select"},
		},
	}
}

func aiBlock(id string, order int, cfg types.AIGenerationConfig) types.PipelineBlock {
	return types.PipelineBlock{
		ID:           id,
		Type:         types.BlockTypeAIGeneration,
		BlockName:    types.BlockAIGeneration,
		Order:        order,
		AIGeneration: &cfg,
	}
}

func TestValidateNoAIBlocksIsWarning(t *testing.T) {
	pipeline := []types.PipelineBlock{
		{ID: "crop-1", BlockName: types.BlockCropResize, Order: 0, CropResize: &types.CropResizeConfig{Format: "square", Dimensions: 1024}},
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityWarning, result.Level)
}

func TestValidateHappyPath(t *testing.T) {
	pipeline := []types.PipelineBlock{
		{ID: "crop-1", BlockName: types.BlockCropResize, Order: 0, CropResize: &types.CropResizeConfig{Format: "square", Dimensions: 1024}},
		aiBlock("ai-1", 1, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			PromptTemplate: "portrait of {{firstName}}",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceSelfie,
		}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityValid, result.Level)
	assert.Empty(t, result.Message)
}

func TestValidateTooManyAIBlocks(t *testing.T) {
	var pipeline []types.PipelineBlock
	for i := 0; i < MaxAIBlocks+1; i++ {
		pipeline = append(pipeline, aiBlock("ai", i, types.AIGenerationConfig{ModelID: "gpt-image-1"}))
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
}

func TestValidateUnknownModel(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{ModelID: "gpt-image-99"}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
	assert.Contains(t, result.Message, "unknown model")
}

func TestValidateUnsupportedMode(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "dall-e-3",
			ImageUsageMode: types.ImageUsageEdit,
			ImageSource:    types.ImageSourceSelfie,
		}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
}

func TestValidateSelfieWithoutCollectionSelfie(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceSelfie,
		}),
	}

	collection := types.InputCollection{Elements: []types.InputElement{{ID: "q1", Type: "text"}}}
	result := Validate(pipeline, collection)
	assert.Equal(t, SeverityError, result.Level)
	assert.Contains(t, result.Message, "selfie")
}

func TestValidateImageModeWithoutSource(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
		}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
}

func TestValidateForwardBlockReference(t *testing.T) {
	// ai-1 consumes ai-2's output, but ai-2 runs later.
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceAIBlockOutput,
			SourceBlockID:  "ai-2",
		}),
		aiBlock("ai-2", 1, types.AIGenerationConfig{ModelID: "gpt-image-1"}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
	assert.Contains(t, result.Message, "does not execute before")
}

func TestValidateSelfBlockReference(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceAIBlockOutput,
			SourceBlockID:  "ai-1",
		}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
}

func TestValidateUnknownBlockReference(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 1, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceAIBlockOutput,
			SourceBlockID:  "ghost",
		}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityError, result.Level)
	assert.Contains(t, result.Message, "unknown block")
}

func TestValidateTextOnlyModelAfterAIBlockIsInfo(t *testing.T) {
	pipeline := []types.PipelineBlock{
		aiBlock("ai-1", 0, types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceSelfie,
		}),
		aiBlock("ai-2", 1, types.AIGenerationConfig{ModelID: "dall-e-3"}),
	}

	result := Validate(pipeline, selfieCollection())
	assert.Equal(t, SeverityInfo, result.Level)
}
