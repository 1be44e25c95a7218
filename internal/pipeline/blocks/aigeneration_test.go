package blocks

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/providers"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/retry"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	image   []byte
	err     error
	prompts []string
	refs    [][][]byte
	opts    []providers.GenerateOptions
	calls   int
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, refs [][]byte, opts providers.GenerateOptions) ([]byte, error) {
	p.calls++
	p.prompts = append(p.prompts, prompt)
	p.refs = append(p.refs, refs)
	p.opts = append(p.opts, opts)
	if p.err != nil {
		return nil, p.err
	}
	return p.image, nil
}

func (p *fakeProvider) Name() string { return p.name }

func fakeDeps(provider *fakeProvider) *Deps {
	return &Deps{
		Retry: retry.Options{MaxRetries: 0, ShouldRetry: retry.IsRetryable},
		ProviderFor: func(model registry.AIModel) (providers.ImageProvider, error) {
			return provider, nil
		},
	}
}

func TestAIGenerationSubstitutesPromptAndCachesOutput(t *testing.T) {
	provider := &fakeProvider{name: "openai", image: []byte("generated-png")}

	ec := NewExecContext(types.ParticipantData{FirstName: "Ada", Answers: map[string]string{"q1": "cats"}})
	ec.Selfie = []byte("selfie-png")

	block := &types.PipelineBlock{
		ID:        "ai-1",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "gpt-image-1",
			PromptTemplate: "portrait of {{firstName}} who likes {{q1}}",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceSelfie,
			AspectRatio:    "2:3",
		},
	}

	exec := &AIGeneration{deps: fakeDeps(provider)}
	output, err := exec.Execute(context.Background(), block, ec)
	require.NoError(t, err)

	assert.Equal(t, []byte("generated-png"), output.Image)
	assert.Equal(t, []byte("generated-png"), ec.Outputs["ai-1"])
	assert.Equal(t, "portrait of Ada who likes cats", ec.FinalPrompt)

	require.Len(t, provider.prompts, 1)
	assert.Equal(t, "portrait of Ada who likes cats", provider.prompts[0])
	require.Len(t, provider.refs[0], 1)
	assert.Equal(t, []byte("selfie-png"), provider.refs[0][0])
	assert.Equal(t, "2:3", provider.opts[0].AspectRatio)
}

func TestAIGenerationNoneModeSendsNoImages(t *testing.T) {
	provider := &fakeProvider{name: "openai", image: []byte("out")}

	ec := NewExecContext(types.ParticipantData{})
	ec.Selfie = []byte("selfie-png")

	block := &types.PipelineBlock{
		ID:        "ai-1",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "dall-e-3",
			PromptTemplate: "a lighthouse at dusk",
		},
	}

	exec := &AIGeneration{deps: fakeDeps(provider)}
	_, err := exec.Execute(context.Background(), block, ec)
	require.NoError(t, err)
	assert.Empty(t, provider.refs[0])
}

func TestAIGenerationConsumesEarlierBlockOutput(t *testing.T) {
	provider := &fakeProvider{name: "gemini", image: []byte("second")}

	ec := NewExecContext(types.ParticipantData{})
	ec.Outputs["ai-1"] = []byte("first")

	block := &types.PipelineBlock{
		ID:        "ai-2",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "gemini-2.5-flash-image",
			PromptTemplate: "refine the scene",
			ImageUsageMode: types.ImageUsageReference,
			ImageSource:    types.ImageSourceAIBlockOutput,
			SourceBlockID:  "ai-1",
		},
	}

	exec := &AIGeneration{deps: fakeDeps(provider)}
	_, err := exec.Execute(context.Background(), block, ec)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), provider.refs[0][0])
}

func TestAIGenerationTruncatesPromptToModelLimit(t *testing.T) {
	provider := &fakeProvider{name: "openai", image: []byte("out")}

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}

	ec := NewExecContext(types.ParticipantData{})
	block := &types.PipelineBlock{
		ID:        "ai-1",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "dall-e-3",
			PromptTemplate: string(long),
		},
	}

	exec := &AIGeneration{deps: fakeDeps(provider)}
	_, err := exec.Execute(context.Background(), block, ec)
	require.NoError(t, err)
	assert.Len(t, provider.prompts[0], registry.MustGetModel("dall-e-3").MaxPromptLen)
}

func TestAIGenerationTruncationKeepsValidUTF8(t *testing.T) {
	provider := &fakeProvider{name: "openai", image: []byte("out")}

	limit := registry.MustGetModel("dall-e-3").MaxPromptLen

	// Place a two-byte rune straddling the byte limit.
	padding := make([]byte, limit-1)
	for i := range padding {
		padding[i] = 'x'
	}

	ec := NewExecContext(types.ParticipantData{})
	block := &types.PipelineBlock{
		ID:        "ai-1",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "dall-e-3",
			PromptTemplate: string(padding) + "éé",
		},
	}

	exec := &AIGeneration{deps: fakeDeps(provider)}
	_, err := exec.Execute(context.Background(), block, ec)
	require.NoError(t, err)

	prompt := provider.prompts[0]
	assert.True(t, utf8.ValidString(prompt))
	assert.LessOrEqual(t, len(prompt), limit)
	assert.Equal(t, limit-1, len(prompt))
}

func TestAIGenerationRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		name: "openai",
		err:  &providers.Error{Provider: "openai", Status: 429, Message: "slow down"},
	}

	ec := NewExecContext(types.ParticipantData{})
	block := &types.PipelineBlock{
		ID:        "ai-1",
		BlockName: types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{
			ModelID:        "dall-e-3",
			PromptTemplate: "a lighthouse",
		},
	}

	deps := fakeDeps(provider)
	deps.Retry.MaxRetries = 1

	exec := &AIGeneration{deps: deps}
	_, err := exec.Execute(context.Background(), block, ec)
	require.Error(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestAIGenerationUnknownModel(t *testing.T) {
	ec := NewExecContext(types.ParticipantData{})
	block := &types.PipelineBlock{
		ID:           "ai-1",
		BlockName:    types.BlockAIGeneration,
		AIGeneration: &types.AIGenerationConfig{ModelID: "gpt-image-99"},
	}

	exec := &AIGeneration{deps: fakeDeps(&fakeProvider{})}
	_, err := exec.Execute(context.Background(), block, ec)
	assert.ErrorIs(t, err, registry.ErrModelNotFound)
}
