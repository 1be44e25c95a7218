package blocks

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/disintegration/imaging"
)

const (
	FormatOriginal  = "original"
	FormatSquare    = "square"
	FormatPortrait  = "portrait"
	FormatLandscape = "landscape"
)

// CropResize deterministically reshapes the running buffer. Portrait is 2:3
// and landscape 3:2, with Dimensions as the short edge.
type CropResize struct{}

func (e *CropResize) Execute(ctx context.Context, block *types.PipelineBlock, ec *ExecContext) (*Output, error) {
	cfg := block.CropResize
	if cfg == nil {
		return nil, fmt.Errorf("crop-resize block %s has no config", block.ID)
	}

	if cfg.Format == FormatOriginal || cfg.Format == "" {
		return &Output{Image: ec.Image, Metadata: map[string]string{"format": FormatOriginal}}, nil
	}

	if len(ec.Image) == 0 {
		return nil, fmt.Errorf("crop-resize block %s has no image to transform", block.ID)
	}

	width, height, err := geometry(cfg.Format, cfg.Dimensions)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(ec.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	cropped := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var out bytes.Buffer
	if err := imaging.Encode(&out, cropped, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Output{
		Image: out.Bytes(),
		Metadata: map[string]string{
			"format": cfg.Format,
			"width":  strconv.Itoa(width),
			"height": strconv.Itoa(height),
		},
	}, nil
}

func geometry(format string, dimensions int) (int, int, error) {
	if dimensions <= 0 {
		return 0, 0, fmt.Errorf("format %q requires dimensions", format)
	}

	switch format {
	case FormatSquare:
		return dimensions, dimensions, nil
	case FormatPortrait:
		return dimensions, dimensions * 3 / 2, nil
	case FormatLandscape:
		return dimensions * 3 / 2, dimensions, nil
	default:
		return 0, 0, fmt.Errorf("unknown crop format: %s", format)
	}
}

var _ Executor = (*CropResize)(nil)
