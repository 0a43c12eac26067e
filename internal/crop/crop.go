// Package crop cuts a selection out of the source bitmap.
//
// Selections live in canvas space. A crop maps them into bitmap space with
// selection.ScaleFactor after removing the image offset, then copies the
// covered pixels. Circle and lasso crops composite the source through an
// opaque mask, so pixels outside the shape are fully transparent.
package crop

import (
	"image"
	"math"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"

	"golang.org/x/image/draw"
)

// Cropper produces the bitmap for one selection. Crop returns nil when the
// selection is empty or degenerate; that is a normal state, not an error.
type Cropper interface {
	Crop() *image.RGBA
}

// Engine holds the inputs shared by all croppers.
type Engine struct {
	// Source is the decoded bitmap at native resolution.
	Source image.Image
	// Canvas is the size of the drawing surface the selection was made on.
	Canvas geometry.Size
	// ImageOffset is where the displayed image starts on the canvas.
	ImageOffset geometry.Point2D
}

// NewEngine creates an engine for src drawn inside canvas with viewport v.
func NewEngine(src image.Image, canvas geometry.Size, v selection.Viewport) Engine {
	return Engine{Source: src, Canvas: canvas, ImageOffset: v.ImageOffset}
}

// Scale returns the bitmap pixels per canvas pixel, or 0 when the engine has
// nothing to crop from.
func (e Engine) Scale() float64 {
	if e.Source == nil {
		return 0
	}
	b := e.Source.Bounds()
	return selection.ScaleFactor(geometry.NewSize(float64(b.Dx()), float64(b.Dy())), e.Canvas)
}

// ToBitmap maps a canvas point into source bitmap coordinates.
func (e Engine) ToBitmap(p geometry.Point2D, scale float64) geometry.Point2D {
	b := e.Source.Bounds()
	q := p.Sub(e.ImageOffset).Scale(scale)
	return geometry.Point2D{X: q.X + float64(b.Min.X), Y: q.Y + float64(b.Min.Y)}
}

// CropperFor returns the cropper matching the selection's shape, or nil for
// shapes that cannot be cropped.
func (e Engine) CropperFor(s selection.State) Cropper {
	switch v := s.(type) {
	case selection.Rectangle:
		return &RectangleCropper{Engine: e, Selection: v}
	case *selection.Rectangle:
		if v != nil {
			return &RectangleCropper{Engine: e, Selection: *v}
		}
	case selection.Circle:
		return &CircleCropper{Engine: e, Selection: v}
	case *selection.Circle:
		if v != nil {
			return &CircleCropper{Engine: e, Selection: *v}
		}
	case selection.Lasso:
		return &LassoCropper{Engine: e, Selection: v}
	case *selection.Lasso:
		if v != nil {
			return &LassoCropper{Engine: e, Selection: *v}
		}
	}
	return nil
}

// Crop cuts s out of the source bitmap. It returns nil for empty selections.
func (e Engine) Crop(s selection.State) *image.RGBA {
	if s == nil || s.IsEmpty() {
		return nil
	}
	c := e.CropperFor(s)
	if c == nil {
		return nil
	}
	return c.Crop()
}

// RectangleCropper copies a rectangular region directly.
type RectangleCropper struct {
	Engine    Engine
	Selection selection.Rectangle
}

// Crop implements Cropper.
func (c *RectangleCropper) Crop() *image.RGBA {
	scale := c.Engine.Scale()
	if scale == 0 || c.Selection.IsEmpty() {
		return nil
	}
	w := round(c.Selection.Width() * scale)
	h := round(c.Selection.Height() * scale)
	if w <= 0 || h <= 0 {
		return nil
	}

	origin := c.Engine.ToBitmap(c.Selection.Offset, scale)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), c.Engine.Source, roundPoint(origin), draw.Src)
	return out
}

// CircleCropper cuts a square around the circle and masks it to the disc.
type CircleCropper struct {
	Engine    Engine
	Selection selection.Circle
}

// Crop implements Cropper.
func (c *CircleCropper) Crop() *image.RGBA {
	scale := c.Engine.Scale()
	if scale == 0 || c.Selection.IsEmpty() {
		return nil
	}
	d := round(2 * c.Selection.Radius * scale)
	if d <= 0 {
		return nil
	}

	topLeft := c.Selection.Center.Sub(geometry.Point2D{X: c.Selection.Radius, Y: c.Selection.Radius})
	origin := c.Engine.ToBitmap(topLeft, scale)

	out := image.NewRGBA(image.Rect(0, 0, d, d))
	draw.DrawMask(out, out.Bounds(), c.Engine.Source, roundPoint(origin), circleMask(d), image.Point{}, draw.Src)
	return out
}

// LassoCropper cuts the path's bounding box and masks it to the closed path.
type LassoCropper struct {
	Engine    Engine
	Selection selection.Lasso
}

// Crop implements Cropper.
func (c *LassoCropper) Crop() *image.RGBA {
	scale := c.Engine.Scale()
	if scale == 0 || len(c.Selection.Points) < selection.LassoMinPoints {
		return nil
	}
	box := c.Selection.Bounds()
	w := round(box.Width * scale)
	h := round(box.Height * scale)
	if w <= 0 || h <= 0 {
		return nil
	}

	// Path points relative to the box, in bitmap pixels.
	path := c.Selection.ClosedPath()
	local := make([]geometry.Point2D, len(path))
	for i, p := range path {
		local[i] = p.Sub(box.TopLeft()).Scale(scale)
	}

	origin := c.Engine.ToBitmap(box.TopLeft(), scale)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.DrawMask(out, out.Bounds(), c.Engine.Source, roundPoint(origin), polygonMask(w, h, local), image.Point{}, draw.Src)
	return out
}

func round(v float64) int {
	return int(math.Round(v))
}

func roundPoint(p geometry.Point2D) image.Point {
	return image.Point{X: round(p.X), Y: round(p.Y)}
}
