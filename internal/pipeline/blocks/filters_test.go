package blocks

import (
	"bytes"
	"context"
	"testing"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterBlock(filter string, amount float64) *types.PipelineBlock {
	return &types.PipelineBlock{
		ID:        "filter-1",
		BlockName: types.BlockFilters,
		Filters:   &types.FiltersConfig{Filter: filter, Amount: amount},
	}
}

func TestFiltersApplyEachEffect(t *testing.T) {
	for _, filter := range []string{FilterGrayscale, FilterSepia, FilterBlur, FilterBrightness, FilterContrast} {
		t.Run(filter, func(t *testing.T) {
			ec := NewExecContext(types.ParticipantData{})
			ec.Image = pngFixture(t, 40, 40)

			output, err := (&Filters{}).Execute(context.Background(), filterBlock(filter, 0.2), ec)
			require.NoError(t, err)
			require.NotEmpty(t, output.Image)
			assert.Equal(t, filter, output.Metadata["filter"])

			img, err := imaging.Decode(bytes.NewReader(output.Image))
			require.NoError(t, err)
			assert.Equal(t, 40, img.Bounds().Dx())
		})
	}
}

func TestFiltersGrayscaleRemovesColor(t *testing.T) {
	ec := NewExecContext(types.ParticipantData{})
	ec.Image = pngFixture(t, 40, 40)

	output, err := (&Filters{}).Execute(context.Background(), filterBlock(FilterGrayscale, 0), ec)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(output.Image))
	require.NoError(t, err)

	r, g, b, _ := img.At(20, 20).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestFiltersUnknownFilter(t *testing.T) {
	ec := NewExecContext(types.ParticipantData{})
	ec.Image = pngFixture(t, 40, 40)

	_, err := (&Filters{}).Execute(context.Background(), filterBlock("posterize", 0), ec)
	assert.Error(t, err)
}

func TestFiltersRequireImage(t *testing.T) {
	ec := NewExecContext(types.ParticipantData{})

	_, err := (&Filters{}).Execute(context.Background(), filterBlock(FilterGrayscale, 0), ec)
	assert.Error(t, err)
}
