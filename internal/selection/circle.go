package selection

import (
	"math"

	"snapcrop/pkg/geometry"
)

// CircleHandle identifies one of the circle's four compass handles.
type CircleHandle int

const (
	CircleHandleNone CircleHandle = iota
	CircleHandleTop
	CircleHandleBottom
	CircleHandleLeft
	CircleHandleRight
)

func (h CircleHandle) String() string {
	switch h {
	case CircleHandleTop:
		return "Top"
	case CircleHandleBottom:
		return "Bottom"
	case CircleHandleLeft:
		return "Left"
	case CircleHandleRight:
		return "Right"
	default:
		return "None"
	}
}

var circleHandles = []CircleHandle{
	CircleHandleTop,
	CircleHandleBottom,
	CircleHandleRight,
	CircleHandleLeft,
}

// Circle is a circular selection in canvas space.
type Circle struct {
	Center geometry.Point2D
	Radius float64
	Active CircleHandle
}

// DefaultCircle centres a circle on center with a radius fitted inside the
// displayed image, inset by CircleInset.
func DefaultCircle(imageSize geometry.Size, center geometry.Point2D) Circle {
	return Circle{
		Center: center,
		Radius: math.Min(imageSize.Height/2-CircleInset, imageSize.Width/2-CircleInset),
	}
}

func (Circle) Kind() Kind { return KindCircle }

// IsEmpty reports whether the circle has not been placed. A placed circle
// always has a positive radius; its center may be anywhere, origin included.
func (c Circle) IsEmpty() bool {
	return c.Radius <= 0
}

// Bounds returns the circle's bounding square.
func (c Circle) Bounds() geometry.Rect {
	return geometry.Rect{
		X:      c.Center.X - c.Radius,
		Y:      c.Center.Y - c.Radius,
		Width:  2 * c.Radius,
		Height: 2 * c.Radius,
	}
}

// Contains reports whether p is inside the circle's bounding square.
func (c Circle) Contains(p geometry.Point2D) bool {
	return c.Bounds().Contains(p)
}

// HandlePosition returns the canvas position of a handle.
func (c Circle) HandlePosition(h CircleHandle) geometry.Point2D {
	switch h {
	case CircleHandleTop:
		return TopHandle(c)
	case CircleHandleBottom:
		return BottomHandle(c)
	case CircleHandleLeft:
		return LeftHandle(c)
	case CircleHandleRight:
		return RightHandle(c)
	}
	return c.Center
}

// TopHandle returns the position of the top handle.
func TopHandle(c Circle) geometry.Point2D {
	return geometry.Point2D{X: c.Center.X, Y: c.Center.Y - c.Radius}
}

// BottomHandle returns the position of the bottom handle.
func BottomHandle(c Circle) geometry.Point2D {
	return geometry.Point2D{X: c.Center.X, Y: c.Center.Y + c.Radius}
}

// LeftHandle returns the position of the left handle.
func LeftHandle(c Circle) geometry.Point2D {
	return geometry.Point2D{X: c.Center.X - c.Radius, Y: c.Center.Y}
}

// RightHandle returns the position of the right handle.
func RightHandle(c Circle) geometry.Point2D {
	return geometry.Point2D{X: c.Center.X + c.Radius, Y: c.Center.Y}
}

// HandleAt returns the handle within CircleHandleTolerance of p, or
// CircleHandleNone.
func (c Circle) HandleAt(p geometry.Point2D) CircleHandle {
	for _, h := range circleHandles {
		if withinTolerance(p, c.HandlePosition(h), CircleHandleTolerance) {
			return h
		}
	}
	return CircleHandleNone
}

// RadiusFor returns the radius that puts handle h under p. Vertical handles
// follow the pointer's y, horizontal ones its x.
func (c Circle) RadiusFor(h CircleHandle, p geometry.Point2D) float64 {
	switch h {
	case CircleHandleTop, CircleHandleBottom:
		return math.Abs(c.Center.Y - p.Y)
	case CircleHandleLeft, CircleHandleRight:
		return math.Abs(c.Center.X - p.X)
	}
	return c.Radius
}

// WithRadius returns a copy with the radius replaced.
func (c Circle) WithRadius(r float64) Circle {
	c.Radius = r
	return c
}

// WithCenter returns a copy with the center replaced.
func (c Circle) WithCenter(p geometry.Point2D) Circle {
	c.Center = p
	return c
}

// WithActive returns a copy with the active handle replaced.
func (c Circle) WithActive(h CircleHandle) Circle {
	c.Active = h
	return c
}
