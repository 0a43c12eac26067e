// Package cvimage converts between Go images and gocv matrices.
package cvimage

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// ToRGBA returns img as an *image.RGBA anchored at (0,0). It returns img
// itself when it already has that form.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// ToMat converts img to a 3-channel BGR Mat. The caller owns the Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	rgba := ToRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mat: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// AlphaMat returns the alpha channel of img as a single-channel Mat.
func AlphaMat(img image.Image) (gocv.Mat, error) {
	rgba := ToRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	alpha := make([]byte, w*h)
	for i := range alpha {
		alpha[i] = rgba.Pix[i*4+3]
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, alpha)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create alpha mat: %w", err)
	}
	return mat, nil
}

// ToImage converts a 1, 3 or 4 channel 8-bit Mat to an opaque RGBA image.
// Multi-channel input is read as BGR(A).
func ToImage(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h, w := mat.Rows(), mat.Cols()
	ch := mat.Channels()
	if ch != 1 && ch != 3 && ch != 4 {
		return nil, fmt.Errorf("unsupported channel count %d", ch)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride

	parallelRows(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			rowOffset := y * stride
			for x := 0; x < w; x++ {
				pix := rowOffset + x*4
				if ch == 1 {
					v := mat.GetUCharAt(y, x)
					img.Pix[pix+0] = v
					img.Pix[pix+1] = v
					img.Pix[pix+2] = v
				} else {
					img.Pix[pix+0] = mat.GetUCharAt(y, x*ch+2) // R
					img.Pix[pix+1] = mat.GetUCharAt(y, x*ch+1) // G
					img.Pix[pix+2] = mat.GetUCharAt(y, x*ch+0) // B
				}
				img.Pix[pix+3] = 255
			}
		}
	})
	return img, nil
}

// ToImageWithAlpha converts a BGR Mat to RGBA using mask as the alpha
// channel. Colours are premultiplied, so masked-out pixels become fully
// transparent.
func ToImageWithAlpha(bgr, mask gocv.Mat) (*image.RGBA, error) {
	img, err := ToImage(bgr)
	if err != nil {
		return nil, err
	}
	if mask.Rows() != bgr.Rows() || mask.Cols() != bgr.Cols() || mask.Channels() != 1 {
		return nil, fmt.Errorf("mask %dx%dx%d does not match image %dx%d",
			mask.Cols(), mask.Rows(), mask.Channels(), bgr.Cols(), bgr.Rows())
	}

	w := bgr.Cols()
	parallelRows(bgr.Rows(), func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			rowOffset := y * img.Stride
			for x := 0; x < w; x++ {
				pix := rowOffset + x*4
				a := uint32(mask.GetUCharAt(y, x))
				img.Pix[pix+0] = uint8(uint32(img.Pix[pix+0]) * a / 255)
				img.Pix[pix+1] = uint8(uint32(img.Pix[pix+1]) * a / 255)
				img.Pix[pix+2] = uint8(uint32(img.Pix[pix+2]) * a / 255)
				img.Pix[pix+3] = uint8(a)
			}
		}
	})
	return img, nil
}

// parallelRows splits [0,h) into horizontal stripes, one per CPU.
func parallelRows(h int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (h + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		startY := worker * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > h {
			endY = h
		}
		if startY >= h {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}
