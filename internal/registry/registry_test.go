package registry

import (
	"testing"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModel(t *testing.T) {
	model, err := GetModel("gpt-image-1")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, model.Provider)
	assert.True(t, model.Supports(types.ImageUsageEdit))

	_, err = GetModel("unknown-model")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestSupportsOnlyNone(t *testing.T) {
	assert.True(t, MustGetModel("dall-e-3").SupportsOnlyNone())
	assert.False(t, MustGetModel("gpt-image-1").SupportsOnlyNone())
	assert.False(t, MustGetModel("gemini-2.5-flash-image").SupportsOnlyNone())
}

func TestGeminiSupportsReferenceNotEdit(t *testing.T) {
	model := MustGetModel("gemini-2.5-flash-image")
	assert.True(t, model.Supports(types.ImageUsageReference))
	assert.False(t, model.Supports(types.ImageUsageEdit))
	assert.False(t, model.SupportsEdit)
}
