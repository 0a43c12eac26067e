package canvas

import (
	"image"
	"image/color"
	"math"

	"snapcrop/internal/selection"
	"snapcrop/pkg/colorutil"
	"snapcrop/pkg/geometry"

	"golang.org/x/image/draw"
)

const (
	handleSize    = 12
	lineThickness = 2
	pointSize     = 4
)

// Frame describes one repaint of the canvas.
type Frame struct {
	// Width and Height are the raster size in pixels.
	Width, Height int
	// Unit is pixels per canvas unit.
	Unit float64

	Image     image.Image
	Viewport  selection.Viewport
	Selection selection.State
}

// Preview caches the source image scaled to the viewport so repaints that
// only move the selection do not resample the source.
type Preview struct {
	src    image.Image
	size   image.Point
	scaled *image.RGBA
}

// Scaled returns src resampled to size.
func (p *Preview) Scaled(src image.Image, size image.Point) *image.RGBA {
	if p.scaled != nil && p.src == src && p.size == size {
		return p.scaled
	}
	p.src, p.size = src, size
	p.scaled = image.NewRGBA(image.Rectangle{Max: size})
	draw.ApproxBiLinear.Scale(p.scaled, p.scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
	return p.scaled
}

// Render paints the image into its viewport on the backdrop and draws the
// selection on top. A nil preview disables caching.
func (f Frame) Render(preview *Preview) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: colorutil.Backdrop}, image.Point{}, draw.Src)

	if f.Unit <= 0 {
		f.Unit = 1
	}
	if f.Image != nil && !f.Viewport.IsEmpty() {
		b := f.Viewport.Bounds()
		dst := image.Rect(
			px(b.X, f.Unit), px(b.Y, f.Unit),
			px(b.Right(), f.Unit), px(b.Bottom(), f.Unit),
		)
		if !dst.Empty() {
			if preview == nil {
				preview = &Preview{}
			}
			scaled := preview.Scaled(f.Image, dst.Size())
			draw.Draw(out, dst, scaled, image.Point{}, draw.Over)
		}
	}

	if f.Selection != nil && !f.Selection.IsEmpty() {
		DrawSelection(out, f.Selection, f.Unit)
	}
	return out
}

// DrawSelection strokes sel onto out. Coordinates are scaled by unit.
func DrawSelection(out *image.RGBA, sel selection.State, unit float64) {
	switch s := sel.(type) {
	case selection.Rectangle:
		drawRectangle(out, s, unit)
	case selection.Circle:
		drawCircle(out, s, unit)
	case selection.Lasso:
		drawLasso(out, s, unit)
	}
}

func drawRectangle(out *image.RGBA, r selection.Rectangle, unit float64) {
	corners := []geometry.Point2D{r.LeftTop, r.RightTop, r.RightBottom, r.LeftBottom}
	drawPolyline(out, corners, true, unit, colorutil.White)
	for _, h := range []selection.RectangleHandle{
		selection.RectHandleLeftTop, selection.RectHandleRightTop,
		selection.RectHandleLeftBottom, selection.RectHandleRightBottom,
	} {
		drawHandle(out, r.HandlePosition(h), unit, colorutil.HandleColor(r.Active == h))
	}
}

func drawCircle(out *image.RGBA, c selection.Circle, unit float64) {
	drawRing(out, c.Center.Scale(unit), c.Radius*unit, colorutil.White)
	for _, h := range []selection.CircleHandle{
		selection.CircleHandleTop, selection.CircleHandleBottom,
		selection.CircleHandleRight, selection.CircleHandleLeft,
	} {
		drawHandle(out, c.HandlePosition(h), unit, colorutil.HandleColor(c.Active == h))
	}
}

func drawLasso(out *image.RGBA, l selection.Lasso, unit float64) {
	pts := l.Vertices()
	col := colorutil.White
	if l.Moving {
		col = colorutil.Blue
	}
	drawPolyline(out, pts, !l.Drawing, unit, col)
	if l.Drawing {
		for _, p := range pts {
			drawSquare(out, p.Scale(unit), pointSize, colorutil.Magenta)
		}
	}
}

func drawPolyline(out *image.RGBA, pts []geometry.Point2D, closed bool, unit float64, col color.RGBA) {
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1].Scale(unit), pts[i].Scale(unit)
		drawLine(out, round(a.X), round(a.Y), round(b.X), round(b.Y), col, lineThickness)
	}
	if closed && len(pts) > 2 {
		a, b := pts[len(pts)-1].Scale(unit), pts[0].Scale(unit)
		drawLine(out, round(a.X), round(a.Y), round(b.X), round(b.Y), col, lineThickness)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(out *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := out.Bounds()

	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				p := image.Point{X: x1 + s, Y: y1 + t}
				if p.In(bounds) {
					out.SetRGBA(p.X, p.Y, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawRing draws a circle outline lineThickness pixels wide.
func drawRing(out *image.RGBA, c geometry.Point2D, r float64, col color.RGBA) {
	bounds := out.Bounds()
	outer := r * r
	inner := math.Max(0, r-lineThickness)
	inner *= inner

	minX, maxX := int(c.X-r-1), int(c.X+r+1)
	minY, maxY := int(c.Y-r-1), int(c.Y+r+1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			dx, dy := float64(x)-c.X, float64(y)-c.Y
			if d := dx*dx + dy*dy; d <= outer && d >= inner {
				out.SetRGBA(x, y, col)
			}
		}
	}
}

func drawHandle(out *image.RGBA, p geometry.Point2D, unit float64, col color.RGBA) {
	q := p.Scale(unit)
	drawSquare(out, q, handleSize+2, colorutil.Black)
	drawSquare(out, q, handleSize, col)
}

// drawSquare fills a size x size square centred on p.
func drawSquare(out *image.RGBA, p geometry.Point2D, size int, col color.RGBA) {
	x, y := round(p.X)-size/2, round(p.Y)-size/2
	r := image.Rect(x, y, x+size, y+size).Intersect(out.Bounds())
	draw.Draw(out, r, &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func px(v, unit float64) int { return round(v * unit) }

func round(v float64) int { return int(math.Round(v)) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
