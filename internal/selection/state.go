// Package selection provides the selection geometry for the rectangle, circle
// and lasso tools, and the canvas/image coordinate mapping they are drawn in.
//
// Every state type is a plain value. Handlers replace a state wholesale on
// each change, so a value obtained from a handler never changes afterwards.
package selection

import (
	"math"

	"snapcrop/pkg/geometry"
)

// Hit-test tolerances and size floors, in canvas pixels.
const (
	RectangleHandleTolerance = 40.0
	CircleHandleTolerance    = 30.0

	MinCircleRadius  = 40.0
	MinRectangleSide = 40.0

	// Default shapes are inset from the displayed image edges.
	RectangleInset = 10.0
	CircleInset    = 20.0

	LassoMinSpacing     = 10.0
	LassoCloseDistance  = 80.0
	LassoCloseMinPoints = 10
	LassoMinPoints      = 2
)

// Kind identifies a selection shape.
type Kind int

const (
	KindNone Kind = iota
	KindRectangle
	KindCircle
	KindLasso
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "Rectangle"
	case KindCircle:
		return "Circle"
	case KindLasso:
		return "Lasso"
	default:
		return "None"
	}
}

// State is implemented by every selection shape.
type State interface {
	Kind() Kind
	// IsEmpty reports whether the selection has not been placed yet.
	IsEmpty() bool
}

// Empty is the selection of tools that do not select anything.
type Empty struct{}

func (Empty) Kind() Kind    { return KindNone }
func (Empty) IsEmpty() bool { return true }

// Viewport anchors the mapping between canvas space and the displayed image:
// the image is drawn at ImageOffset with ImageSize, both in canvas pixels.
type Viewport struct {
	ImageSize   geometry.Size
	ImageOffset geometry.Point2D
}

// Bounds returns the displayed image rectangle in canvas space.
func (v Viewport) Bounds() geometry.Rect {
	return geometry.Rect{
		X:      v.ImageOffset.X,
		Y:      v.ImageOffset.Y,
		Width:  v.ImageSize.Width,
		Height: v.ImageSize.Height,
	}
}

// IsEmpty reports whether the viewport has not been laid out yet.
func (v Viewport) IsEmpty() bool {
	return v.ImageSize.IsEmpty()
}

// ContainsStrict reports whether p lies strictly inside the displayed image.
func (v Viewport) ContainsStrict(p geometry.Point2D) bool {
	b := v.Bounds()
	return p.X > b.X && p.X < b.Right() && p.Y > b.Y && p.Y < b.Bottom()
}

// FitViewport letterboxes a source bitmap into a canvas: the image is scaled
// uniformly to fit and centred. Sizes and offsets are truncated to whole
// pixels, as the layout pass draws on integer coordinates.
func FitViewport(canvas, source geometry.Size) Viewport {
	if canvas.IsEmpty() || source.IsEmpty() {
		return Viewport{}
	}
	scale := math.Min(canvas.Width/source.Width, canvas.Height/source.Height)
	w := math.Floor(scale * source.Width)
	h := math.Floor(scale * source.Height)
	return Viewport{
		ImageSize: geometry.Size{Width: w, Height: h},
		ImageOffset: geometry.Point2D{
			X: math.Floor((canvas.Width - w) / 2),
			Y: math.Floor((canvas.Height - h) / 2),
		},
	}
}

// ScaleFactor returns the number of source bitmap pixels per canvas pixel.
// The larger axis ratio is used so a crop never samples below the source's
// native resolution. It returns 0 when the canvas has not been laid out.
func ScaleFactor(source, canvas geometry.Size) float64 {
	if canvas.IsEmpty() {
		return 0
	}
	return math.Max(source.Width/canvas.Width, source.Height/canvas.Height)
}

// withinTolerance is the handle hit test shared by all shapes.
func withinTolerance(p, handle geometry.Point2D, tolerance float64) bool {
	return p.Distance(handle) <= tolerance
}
