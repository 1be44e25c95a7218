package blocks

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

const (
	FilterGrayscale  = "grayscale"
	FilterSepia      = "sepia"
	FilterBlur       = "blur"
	FilterBrightness = "brightness"
	FilterContrast   = "contrast"
)

// Filters applies a named effect to the running buffer. No network I/O.
type Filters struct{}

func (e *Filters) Execute(ctx context.Context, block *types.PipelineBlock, ec *ExecContext) (*Output, error) {
	cfg := block.Filters
	if cfg == nil {
		return nil, fmt.Errorf("filters block %s has no config", block.ID)
	}

	if len(ec.Image) == 0 {
		return nil, fmt.Errorf("filters block %s has no image to transform", block.ID)
	}

	img, err := imaging.Decode(bytes.NewReader(ec.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var filtered image.Image
	switch cfg.Filter {
	case FilterGrayscale:
		filtered = effect.Grayscale(img)
	case FilterSepia:
		filtered = effect.Sepia(img)
	case FilterBlur:
		radius := cfg.Amount
		if radius <= 0 {
			radius = 3.0
		}
		filtered = blur.Gaussian(img, radius)
	case FilterBrightness:
		filtered = adjust.Brightness(img, cfg.Amount)
	case FilterContrast:
		filtered = adjust.Contrast(img, cfg.Amount)
	default:
		return nil, fmt.Errorf("unknown filter: %s", cfg.Filter)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, filtered, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Output{
		Image:    out.Bytes(),
		Metadata: map[string]string{"filter": cfg.Filter},
	}, nil
}

var _ Executor = (*Filters)(nil)
