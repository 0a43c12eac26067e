// Package contour finds the dominant object outline in a bitmap, used to snap
// a freehand lasso onto image edges.
package contour

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"snapcrop/internal/cvimage"

	"gocv.io/x/gocv"
)

// ErrNoContour is returned when the image holds no closed outline.
var ErrNoContour = errors.New("no contour found")

// Remover isolates the foreground of an image. A nil image with a nil error
// means no foreground was found.
type Remover interface {
	RemoveBackground(ctx context.Context, img image.Image) (image.Image, error)
}

// Params configures the edge-detection path.
type Params struct {
	BlurSize     int     // Gaussian kernel, odd
	CannyLow     float32 // Canny hysteresis thresholds
	CannyHigh    float32
	DilateKernel int // Rectangular kernel joining broken edges
}

// DefaultParams returns the default edge-detection parameters.
func DefaultParams() Params {
	return Params{
		BlurSize:     7,
		CannyLow:     100,
		CannyHigh:    200,
		DilateKernel: 15,
	}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if p.BlurSize < 1 || p.BlurSize%2 == 0 {
		return fmt.Errorf("blur size must be a positive odd number, got %d", p.BlurSize)
	}
	if p.CannyLow < 0 || p.CannyHigh < p.CannyLow {
		return fmt.Errorf("invalid canny thresholds %v/%v", p.CannyLow, p.CannyHigh)
	}
	if p.DilateKernel < 1 {
		return fmt.Errorf("dilate kernel must be positive, got %d", p.DilateKernel)
	}
	return nil
}

// Snapper extracts the largest external contour of an image.
//
// With a Remover configured, the foreground's alpha channel is used as the
// mask. Without one, or when the remover fails or finds nothing, edges are
// detected with Canny and dilated into closed regions.
type Snapper struct {
	Params  Params
	Remover Remover
	Logger  *log.Logger
}

// NewSnapper creates a snapper with default parameters and no remover.
func NewSnapper() *Snapper {
	return &Snapper{Params: DefaultParams()}
}

func (s *Snapper) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// FindContour returns the points of the largest external contour in img, in
// img's pixel coordinates relative to its bounds origin.
func (s *Snapper) FindContour(ctx context.Context, img image.Image) ([]image.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask, err := s.mask(ctx, img)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LargestContour(mask)
}

// mask builds the binary image to trace.
func (s *Snapper) mask(ctx context.Context, img image.Image) (gocv.Mat, error) {
	if s.Remover != nil {
		fg, err := s.Remover.RemoveBackground(ctx, img)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return gocv.Mat{}, ctxErr
			}
			s.logf("contour: background removal failed, using edges: %v", err)
		case fg == nil:
			s.logf("contour: no foreground found, using edges")
		default:
			return foregroundMask(fg)
		}
	}
	return s.edgeMask(ctx, img)
}

// foregroundMask thresholds the alpha channel of fg.
func foregroundMask(fg image.Image) (gocv.Mat, error) {
	alpha, err := cvimage.AlphaMat(fg)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to read foreground alpha: %w", err)
	}
	defer alpha.Close()

	bin := gocv.NewMat()
	gocv.Threshold(alpha, &bin, 0, 255, gocv.ThresholdBinary)
	return bin, nil
}

// edgeMask runs gray -> blur -> Canny -> dilate.
func (s *Snapper) edgeMask(ctx context.Context, img image.Image) (gocv.Mat, error) {
	p := s.Params
	if err := p.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	src, err := cvimage.ToMat(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: p.BlurSize, Y: p.BlurSize}, 0, 0, gocv.BorderDefault)

	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, err
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, p.CannyLow, p.CannyHigh)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: p.DilateKernel, Y: p.DilateKernel})
	defer kernel.Close()

	dilated := gocv.NewMat()
	gocv.Dilate(edges, &dilated, kernel)
	return dilated, nil
}

// LargestContour returns the external contour of a binary mask with the
// largest enclosed area.
func LargestContour(mask gocv.Mat) ([]image.Point, error) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if best < 0 || area > bestArea {
			best = i
			bestArea = area
		}
	}
	if best < 0 {
		return nil, ErrNoContour
	}
	return contours.At(best).ToPoints(), nil
}
