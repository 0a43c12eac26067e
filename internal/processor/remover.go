package processor

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"snapcrop/internal/contour"
	"snapcrop/internal/cvimage"

	"gocv.io/x/gocv"
)

// ThresholdRemover separates the foreground with an Otsu threshold. The side
// of the threshold that covers most of the image border is taken as the
// background, and only the largest connected blob is kept.
type ThresholdRemover struct {
	// MorphKernel is the size of the close/open kernel that cleans the mask.
	MorphKernel int
	// MinAreaFraction rejects blobs smaller than this share of the image.
	MinAreaFraction float64
}

// NewThresholdRemover creates a remover with default settings.
func NewThresholdRemover() *ThresholdRemover {
	return &ThresholdRemover{MorphKernel: 5, MinAreaFraction: 0.01}
}

// RemoveBackground implements BackgroundRemover.
func (r *ThresholdRemover) RemoveBackground(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := cvimage.ToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	if borderMean(bin) > 127 {
		gocv.BitwiseNot(bin, &bin)
	}

	if r.MorphKernel > 1 {
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: r.MorphKernel, Y: r.MorphKernel})
		defer kernel.Close()
		gocv.MorphologyEx(bin, &bin, gocv.MorphClose, kernel)
		gocv.MorphologyEx(bin, &bin, gocv.MorphOpen, kernel)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask, ok := largestBlob(bin, r.MinAreaFraction)
	if !ok {
		return nil, nil
	}
	defer mask.Close()

	out, err := cvimage.ToImageWithAlpha(src, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to compose foreground: %w", err)
	}
	return out, nil
}

// borderMean returns the mean value of the outermost pixels of a
// single-channel mask.
func borderMean(m gocv.Mat) float64 {
	rows, cols := m.Rows(), m.Cols()
	if rows == 0 || cols == 0 {
		return 0
	}
	var sum, n int
	for x := 0; x < cols; x++ {
		sum += int(m.GetUCharAt(0, x)) + int(m.GetUCharAt(rows-1, x))
		n += 2
	}
	for y := 1; y < rows-1; y++ {
		sum += int(m.GetUCharAt(y, 0)) + int(m.GetUCharAt(y, cols-1))
		n += 2
	}
	return float64(sum) / float64(n)
}

// largestBlob draws the largest external contour of bin, filled, into a new
// mask. It reports false when there is no contour of sufficient area.
func largestBlob(bin gocv.Mat, minFraction float64) (gocv.Mat, bool) {
	pts, err := contour.LargestContour(bin)
	if err != nil {
		return gocv.Mat{}, false
	}
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()

	area := gocv.ContourArea(pv)
	if area <= 0 || area < minFraction*float64(bin.Rows()*bin.Cols()) {
		return gocv.Mat{}, false
	}

	contours := gocv.NewPointsVector()
	defer contours.Close()
	contours.Append(pv)

	mask := gocv.NewMatWithSize(bin.Rows(), bin.Cols(), gocv.MatTypeCV8UC1)
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.DrawContours(&mask, contours, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return mask, true
}
