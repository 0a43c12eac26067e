package selection

import (
	"snapcrop/pkg/geometry"
)

// RectangleHandle identifies one of the rectangle's corner handles.
type RectangleHandle int

const (
	RectHandleNone RectangleHandle = iota
	RectHandleLeftTop
	RectHandleRightTop
	RectHandleLeftBottom
	RectHandleRightBottom
)

func (h RectangleHandle) String() string {
	switch h {
	case RectHandleLeftTop:
		return "LeftTop"
	case RectHandleRightTop:
		return "RightTop"
	case RectHandleLeftBottom:
		return "LeftBottom"
	case RectHandleRightBottom:
		return "RightBottom"
	default:
		return "None"
	}
}

// rectangleHandles is the hit-test priority order.
var rectangleHandles = []RectangleHandle{
	RectHandleLeftTop,
	RectHandleRightTop,
	RectHandleLeftBottom,
	RectHandleRightBottom,
}

// Rectangle is an axis-aligned rectangular selection in canvas space.
//
// The corners, Offset and Size are always produced together by
// NewRectangle, so width and height never disagree with the corners.
type Rectangle struct {
	LeftTop     geometry.Point2D
	RightTop    geometry.Point2D
	LeftBottom  geometry.Point2D
	RightBottom geometry.Point2D

	Offset geometry.Point2D
	Size   geometry.Size

	Active RectangleHandle
}

// NewRectangle builds a rectangle from two opposite corners.
func NewRectangle(a, b geometry.Point2D) Rectangle {
	r := geometry.RectFromPoints(a, b)
	return Rectangle{
		LeftTop:     geometry.Point2D{X: r.X, Y: r.Y},
		RightTop:    geometry.Point2D{X: r.Right(), Y: r.Y},
		LeftBottom:  geometry.Point2D{X: r.X, Y: r.Bottom()},
		RightBottom: geometry.Point2D{X: r.Right(), Y: r.Bottom()},
		Offset:      r.TopLeft(),
		Size:        r.Size(),
	}
}

// DefaultRectangle returns the initial selection for an image displayed with
// imageSize at imageOffset: the image rectangle inset by RectangleInset.
func DefaultRectangle(imageSize geometry.Size, imageOffset geometry.Point2D) Rectangle {
	return NewRectangle(
		LeftTopHandle(imageOffset),
		RightBottomHandle(imageOffset, imageSize),
	)
}

// LeftTopHandle returns the default left-top handle position.
func LeftTopHandle(offset geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{X: offset.X + RectangleInset, Y: offset.Y + RectangleInset}
}

// RightTopHandle returns the default right-top handle position.
func RightTopHandle(offset geometry.Point2D, size geometry.Size) geometry.Point2D {
	return geometry.Point2D{X: offset.X + size.Width - RectangleInset, Y: offset.Y + RectangleInset}
}

// LeftBottomHandle returns the default left-bottom handle position.
func LeftBottomHandle(offset geometry.Point2D, size geometry.Size) geometry.Point2D {
	return geometry.Point2D{X: offset.X + RectangleInset, Y: offset.Y + size.Height - RectangleInset}
}

// RightBottomHandle returns the default right-bottom handle position.
func RightBottomHandle(offset geometry.Point2D, size geometry.Size) geometry.Point2D {
	return geometry.Point2D{X: offset.X + size.Width - RectangleInset, Y: offset.Y + size.Height - RectangleInset}
}

func (Rectangle) Kind() Kind { return KindRectangle }

// IsEmpty reports whether the rectangle is the zero value.
func (r Rectangle) IsEmpty() bool {
	return r.LeftTop.IsZero() && r.RightTop.IsZero() &&
		r.LeftBottom.IsZero() && r.RightBottom.IsZero()
}

// Width returns the horizontal extent of the rectangle.
func (r Rectangle) Width() float64 { return r.Size.Width }

// Height returns the vertical extent of the rectangle.
func (r Rectangle) Height() float64 { return r.Size.Height }

// Bounds returns the rectangle as a geometry.Rect.
func (r Rectangle) Bounds() geometry.Rect {
	return geometry.Rect{X: r.Offset.X, Y: r.Offset.Y, Width: r.Size.Width, Height: r.Size.Height}
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rectangle) Contains(p geometry.Point2D) bool {
	return r.Bounds().Contains(p)
}

// HandlePosition returns the canvas position of a handle, derived from the
// bounding offset and size.
func (r Rectangle) HandlePosition(h RectangleHandle) geometry.Point2D {
	switch h {
	case RectHandleLeftTop:
		return r.Offset
	case RectHandleRightTop:
		return geometry.Point2D{X: r.Offset.X + r.Size.Width, Y: r.Offset.Y}
	case RectHandleLeftBottom:
		return geometry.Point2D{X: r.Offset.X, Y: r.Offset.Y + r.Size.Height}
	case RectHandleRightBottom:
		return geometry.Point2D{X: r.Offset.X + r.Size.Width, Y: r.Offset.Y + r.Size.Height}
	}
	return geometry.Point2D{}
}

// HandleAt returns the handle within RectangleHandleTolerance of p, or
// RectHandleNone.
func (r Rectangle) HandleAt(p geometry.Point2D) RectangleHandle {
	for _, h := range rectangleHandles {
		if withinTolerance(p, r.HandlePosition(h), RectangleHandleTolerance) {
			return h
		}
	}
	return RectHandleNone
}

// opposite returns the corner that stays fixed while h is dragged.
func (r Rectangle) opposite(h RectangleHandle) geometry.Point2D {
	switch h {
	case RectHandleLeftTop:
		return r.RightBottom
	case RectHandleRightTop:
		return r.LeftBottom
	case RectHandleLeftBottom:
		return r.RightTop
	default:
		return r.LeftTop
	}
}

// Resize moves handle h to p while the opposite corner stays fixed. It
// returns false if the result would be narrower or shorter than minSide,
// which also rules out the dragged corner crossing over the fixed one.
func (r Rectangle) Resize(h RectangleHandle, p geometry.Point2D, minSide float64) (Rectangle, bool) {
	if h == RectHandleNone {
		return r, false
	}
	fixed := r.opposite(h)

	var w, hgt float64
	switch h {
	case RectHandleLeftTop:
		w, hgt = fixed.X-p.X, fixed.Y-p.Y
	case RectHandleRightTop:
		w, hgt = p.X-fixed.X, fixed.Y-p.Y
	case RectHandleLeftBottom:
		w, hgt = fixed.X-p.X, p.Y-fixed.Y
	case RectHandleRightBottom:
		w, hgt = p.X-fixed.X, p.Y-fixed.Y
	}
	if w < minSide || hgt < minSide {
		return r, false
	}

	next := NewRectangle(p, fixed)
	next.Active = r.Active
	return next, true
}

// Translate moves the whole rectangle by d.
func (r Rectangle) Translate(d geometry.Point2D) Rectangle {
	next := NewRectangle(r.LeftTop.Add(d), r.RightBottom.Add(d))
	next.Active = r.Active
	return next
}

// WithActive returns a copy with the active handle replaced.
func (r Rectangle) WithActive(h RectangleHandle) Rectangle {
	r.Active = h
	return r
}
