// Package processor provides whole-image operations applied by the editor:
// colour filters and background removal.
package processor

import (
	"context"
	"errors"
	"image"

	"golang.org/x/image/draw"
)

var (
	// ErrNoForeground is returned when background removal finds no object.
	ErrNoForeground = errors.New("no foreground found")
	// ErrUnknownFilter is returned for a filter name that is not recognised.
	ErrUnknownFilter = errors.New("unknown filter")
)

// Processor transforms a whole image. Implementations must not modify img.
type Processor interface {
	Process(ctx context.Context, img image.Image) (image.Image, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, img image.Image) (image.Image, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// BackgroundRemover isolates the foreground object of an image. It returns
// an image whose background is transparent, or nil with a nil error when no
// foreground could be told apart.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, img image.Image) (image.Image, error)
}

// RemovalProcessor adapts a BackgroundRemover to Processor.
type RemovalProcessor struct {
	Remover BackgroundRemover
}

// Process implements Processor. It returns ErrNoForeground when the remover
// finds nothing.
func (p RemovalProcessor) Process(ctx context.Context, img image.Image) (image.Image, error) {
	out, err := p.Remover.RemoveBackground(ctx, img)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNoForeground
	}
	return out, nil
}

// downscale shrinks img by an integer factor with bilinear sampling.
func downscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	if factor < 1 {
		factor = 1
	}
	w, h := b.Dx()/factor, b.Dy()/factor
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
