package crop

import (
	"image"

	"snapcrop/pkg/geometry"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter-circle arc.
const kappa = 0.5522847498

// circleMask returns a d x d alpha mask holding a filled disc.
func circleMask(d int) *image.Alpha {
	z := vector.NewRasterizer(d, d)
	r := float32(d) / 2
	cx, cy := r, r
	k := r * kappa

	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, d, d))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// polygonMask returns a w x h alpha mask with the polygon pts filled using
// the non-zero rule. The path is closed even if the last point does not
// repeat the first.
func polygonMask(w, h int, pts []geometry.Point2D) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if len(pts) < 2 {
		return mask
	}

	z := vector.NewRasterizer(w, h)
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
