package processor

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"snapcrop/internal/cvimage"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Filter is a whole-image colour effect.
type Filter int

const (
	FilterNone Filter = iota
	FilterGaussianBlur
	FilterGray
	FilterCartoon
	FilterLight
	FilterCanny
	FilterSepia
	FilterPixelize
	FilterSummer
	FilterOcean
	FilterAutumn
	FilterBone
	FilterHot
	FilterJet
	FilterCool
	FilterRainbow
)

var filterNames = []string{
	FilterNone:         "None",
	FilterGaussianBlur: "GaussianBlur",
	FilterGray:         "Gray",
	FilterCartoon:      "Cartoon",
	FilterLight:        "Light",
	FilterCanny:        "Canny",
	FilterSepia:        "Sepia",
	FilterPixelize:     "Pixelize",
	FilterSummer:       "Summer",
	FilterOcean:        "Ocean",
	FilterAutumn:       "Autumn",
	FilterBone:         "Bone",
	FilterHot:          "Hot",
	FilterJet:          "Jet",
	FilterCool:         "Cool",
	FilterRainbow:      "Rainbow",
}

var colorMaps = map[Filter]gocv.ColormapTypes{
	FilterSummer:  gocv.ColormapSummer,
	FilterOcean:   gocv.ColormapOcean,
	FilterAutumn:  gocv.ColormapAutumn,
	FilterBone:    gocv.ColormapBone,
	FilterHot:     gocv.ColormapHot,
	FilterJet:     gocv.ColormapJet,
	FilterCool:    gocv.ColormapCool,
	FilterRainbow: gocv.ColormapRainbow,
}

func (f Filter) String() string {
	if f >= 0 && int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// Filters returns every filter in display order.
func Filters() []Filter {
	out := make([]Filter, len(filterNames))
	for i := range out {
		out[i] = Filter(i)
	}
	return out
}

// ParseFilter looks a filter up by name, ignoring case.
func ParseFilter(name string) (Filter, error) {
	for i, n := range filterNames {
		if strings.EqualFold(n, name) {
			return Filter(i), nil
		}
	}
	return FilterNone, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

// FilterProcessor applies one Filter. The image is shrunk by Downscale
// before filtering; FilterNone returns the input untouched.
type FilterProcessor struct {
	Filter    Filter
	Downscale int
}

// NewFilterProcessor creates a processor for f with the default downscale.
func NewFilterProcessor(f Filter) FilterProcessor {
	return FilterProcessor{Filter: f, Downscale: 2}
}

// Process implements Processor.
func (p FilterProcessor) Process(ctx context.Context, img image.Image) (image.Image, error) {
	if p.Filter == FilterNone {
		return img, nil
	}
	if int(p.Filter) < 0 || int(p.Filter) >= len(filterNames) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFilter, p.Filter)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	small := downscale(img, p.Downscale)
	if p.Filter == FilterSepia {
		return sepia(small), nil
	}

	src, err := cvimage.ToMat(small)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	switch p.Filter {
	case FilterGaussianBlur:
		gocv.GaussianBlur(src, &dst, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)
	case FilterGray:
		grayBlur(src, &dst, 7)
	case FilterCartoon:
		cartoon(src, &dst)
	case FilterLight:
		gocv.AddWeighted(src, 1.0, src, 0.5, 0.5, &dst)
	case FilterCanny:
		gray := gocv.NewMat()
		defer gray.Close()
		grayBlur(src, &gray, 13)
		gocv.Canny(gray, &dst, 50, 100)
	case FilterPixelize:
		tiny := gocv.NewMat()
		defer tiny.Close()
		gocv.Resize(src, &tiny, image.Point{}, 0.1, 0.1, gocv.InterpolationNearestNeighbor)
		gocv.Resize(tiny, &dst, image.Point{X: src.Cols(), Y: src.Rows()}, 0, 0, gocv.InterpolationNearestNeighbor)
	default:
		gocv.ApplyColorMap(src, &dst, colorMaps[p.Filter])
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := cvimage.ToImage(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to apply %v: %w", p.Filter, err)
	}
	return out, nil
}

func grayBlur(src gocv.Mat, dst *gocv.Mat, k int) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, dst, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
}

// cartoon posterizes the colours and overlays adaptive-threshold outlines.
func cartoon(src gocv.Mat, dst *gocv.Mat) {
	reduced := reduceColors(src, 80, 15, 10)
	defer reduced.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.MedianBlur(gray, &gray, 45)
	gocv.AdaptiveThreshold(gray, &gray, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 15, 2)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.CvtColor(gray, &edges, gocv.ColorGrayToBGR)

	gocv.BitwiseAnd(reduced, edges, dst)
}

// reduceColors quantises each BGR channel to the given number of levels.
// The first count applies to channel 0.
func reduceColors(src gocv.Mat, c0, c1, c2 int) gocv.Mat {
	channels := gocv.Split(src)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	for i, n := range []int{c0, c1, c2} {
		lut := levelsLUT(n)
		lutMat, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8UC1, lut)
		if err != nil {
			continue
		}
		gocv.LUT(channels[i], lutMat, &channels[i])
		lutMat.Close()
	}

	out := gocv.NewMat()
	gocv.Merge(channels, &out)
	return out
}

// levelsLUT maps 0..255 onto n evenly spaced levels, each value taking the
// level at or above it.
func levelsLUT(n int) []byte {
	lut := make([]byte, 256)
	if n < 1 {
		return lut
	}
	step := 256.0 / float64(n)
	start := 0
	for x := 0.0; x < 256; x += step {
		level := int(x)
		for y := start; y <= level && y < 256; y++ {
			lut[y] = byte(level)
		}
		start = level + 1
	}
	// Values above the last level keep themselves.
	for y := start; y < 256; y++ {
		lut[y] = byte(y)
	}
	return lut
}

// sepiaKernel maps (R,G,B) to sepia-toned (R',G',B').
var sepiaKernel = mat.NewDense(3, 3, []float64{
	0.393, 0.769, 0.189,
	0.349, 0.686, 0.168,
	0.272, 0.534, 0.131,
})

// sepia applies sepiaKernel to every pixel as one 3xN matrix product.
func sepia(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := w * h
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if n == 0 {
		return out
	}

	offsets := make([]int, n)
	px := mat.NewDense(3, n, nil)
	for i := 0; i < n; i++ {
		o := img.PixOffset(i%w+img.Rect.Min.X, i/w+img.Rect.Min.Y)
		offsets[i] = o
		px.Set(0, i, float64(img.Pix[o]))
		px.Set(1, i, float64(img.Pix[o+1]))
		px.Set(2, i, float64(img.Pix[o+2]))
	}

	var toned mat.Dense
	toned.Mul(sepiaKernel, px)

	for i, o := range offsets {
		d := i * 4
		out.Pix[d] = clamp8(toned.At(0, i))
		out.Pix[d+1] = clamp8(toned.At(1, i))
		out.Pix[d+2] = clamp8(toned.At(2, i))
		out.Pix[d+3] = img.Pix[o+3]
	}
	return out
}

func clamp8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
