package selection

import (
	"snapcrop/pkg/geometry"
)

// Direction is the 8-way compass heading of a lasso point relative to the
// point before it.
type Direction int

const (
	DirectionUndefined Direction = iota
	DirectionUp
	DirectionDown
	DirectionLeft
	DirectionRight
	DirectionUpLeft
	DirectionUpRight
	DirectionDownLeft
	DirectionDownRight
)

var directionNames = map[Direction]string{
	DirectionUndefined: "Undefined",
	DirectionUp:        "Up",
	DirectionDown:      "Down",
	DirectionLeft:      "Left",
	DirectionRight:     "Right",
	DirectionUpLeft:    "UpLeft",
	DirectionUpRight:   "UpRight",
	DirectionDownLeft:  "DownLeft",
	DirectionDownRight: "DownRight",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return "Undefined"
}

// ClassifyDirection returns the heading from prev to cur. Canvas y grows
// downwards, so a smaller y is Up.
func ClassifyDirection(prev, cur geometry.Point2D) Direction {
	dx, dy := cur.X-prev.X, cur.Y-prev.Y
	switch {
	case dx > 0 && dy > 0:
		return DirectionDownRight
	case dx > 0 && dy < 0:
		return DirectionUpRight
	case dx > 0:
		return DirectionRight
	case dx < 0 && dy > 0:
		return DirectionDownLeft
	case dx < 0 && dy < 0:
		return DirectionUpLeft
	case dx < 0:
		return DirectionLeft
	case dy > 0:
		return DirectionDown
	case dy < 0:
		return DirectionUp
	}
	return DirectionUndefined
}

// LassoPoint is one vertex of a lasso path.
type LassoPoint struct {
	X, Y      float64
	Direction Direction
	// IsLast marks a point close enough to the start to close the path.
	IsLast bool
}

// Point returns the vertex position.
func (p LassoPoint) Point() geometry.Point2D {
	return geometry.Point2D{X: p.X, Y: p.Y}
}

// Lasso is a freehand selection path.
//
// While Drawing is true the path is open. Once drawing finishes the path is
// closed implicitly: the edge from the last point back to the first is never
// stored and is synthesized by ClosedPath for rendering and cropping.
type Lasso struct {
	Points  []LassoPoint
	Drawing bool
	Moving  bool
}

func (Lasso) Kind() Kind { return KindLasso }

// IsEmpty reports whether the path has no points.
func (l Lasso) IsEmpty() bool { return len(l.Points) == 0 }

// Vertices returns the stored points as plain coordinates.
func (l Lasso) Vertices() []geometry.Point2D {
	out := make([]geometry.Point2D, len(l.Points))
	for i, p := range l.Points {
		out[i] = p.Point()
	}
	return out
}

// ClosedPath returns the vertices to stroke. For a finished path with at
// least two points the first vertex is appended again to close it.
func (l Lasso) ClosedPath() []geometry.Point2D {
	out := l.Vertices()
	if !l.Drawing && len(out) >= LassoMinPoints {
		out = append(out, out[0])
	}
	return out
}

// Bounds returns the bounding box of the path.
func (l Lasso) Bounds() geometry.Rect {
	return geometry.BoundingBox(l.Vertices())
}

// Contains reports whether p lies in the path's bounding box.
func (l Lasso) Contains(p geometry.Point2D) bool {
	if l.IsEmpty() {
		return false
	}
	return l.Bounds().Contains(p)
}

// Translate shifts every point by d.
func (l Lasso) Translate(d geometry.Point2D) Lasso {
	pts := make([]LassoPoint, len(l.Points))
	for i, p := range l.Points {
		p.X += d.X
		p.Y += d.Y
		pts[i] = p
	}
	l.Points = pts
	return l
}

// WithPoints returns a copy holding its own copy of pts.
func (l Lasso) WithPoints(pts []LassoPoint) Lasso {
	l.Points = append([]LassoPoint(nil), pts...)
	return l
}

// Append returns a copy with p added at the end. The receiver's backing
// array is never written.
func (l Lasso) Append(p LassoPoint) Lasso {
	pts := make([]LassoPoint, len(l.Points), len(l.Points)+1)
	copy(pts, l.Points)
	l.Points = append(pts, p)
	return l
}

// Last returns the most recent point.
func (l Lasso) Last() (LassoPoint, bool) {
	if len(l.Points) == 0 {
		return LassoPoint{}, false
	}
	return l.Points[len(l.Points)-1], true
}

// InViewport returns a copy keeping only points strictly inside v.
func (l Lasso) InViewport(v Viewport) Lasso {
	var kept []LassoPoint
	for _, p := range l.Points {
		if v.ContainsStrict(p.Point()) {
			kept = append(kept, p)
		}
	}
	l.Points = kept
	return l
}

// SpacedEnough reports whether next is at least LassoMinSpacing away from
// prev on each axis. Pointer events closer than that are dropped.
func SpacedEnough(prev, next geometry.Point2D) bool {
	dx, dy := next.X-prev.X, next.Y-prev.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx >= LassoMinSpacing && dy >= LassoMinSpacing
}

// ClosesPath reports whether p, appended to l, should be flagged as the
// closing point: the path already has LassoCloseMinPoints points and p is
// within LassoCloseDistance of the first one.
func (l Lasso) ClosesPath(p geometry.Point2D) bool {
	if len(l.Points) < LassoCloseMinPoints {
		return false
	}
	return p.Distance(l.Points[0].Point()) < LassoCloseDistance
}
