package motion

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"

	"snapcrop/internal/crop"
	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// MinSnapPoints is the fewest in-image points a path needs to be snapped.
const MinSnapPoints = 3

// ContourFinder returns the dominant outline of img in its pixel space.
type ContourFinder interface {
	FindContour(ctx context.Context, img image.Image) ([]image.Point, error)
}

// MagneticLassoHandler is a lasso whose finished path is replaced by the
// largest contour found under it.
//
// The snap runs on its own goroutine. Only one snap is in flight per handler:
// any new press cancels it, and a result that arrives after a newer gesture
// started is dropped.
type MagneticLassoHandler struct {
	*LassoHandler

	finder ContourFinder
	source image.Image
	logger *log.Logger

	// Guarded by LassoHandler.mu.
	canvas     geometry.Size
	progress   func(busy bool)
	generation uint64
	cancelSnap context.CancelFunc

	wg sync.WaitGroup
}

// NewMagneticLassoHandler creates a magnetic lasso over source displayed on
// a canvas of the given size. A nil finder disables snapping.
func NewMagneticLassoHandler(v selection.Viewport, opts Options, canvas geometry.Size, source image.Image, finder ContourFinder, logger *log.Logger) *MagneticLassoHandler {
	h := &MagneticLassoHandler{
		LassoHandler: NewLassoHandler(v, opts),
		finder:       finder,
		source:       source,
		canvas:       canvas,
		logger:       logger,
	}
	h.LassoHandler.pressed = h.abort
	h.LassoHandler.finished = h.snap
	return h
}

func (h *MagneticLassoHandler) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// OnProgress sets the callback bracketing each snap with true and false.
// It is called from the snap goroutine.
func (h *MagneticLassoHandler) OnProgress(fn func(busy bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = fn
}

// UpdateCanvas records a new canvas size.
func (h *MagneticLassoHandler) UpdateCanvas(size geometry.Size) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.canvas = size
}

// Wait blocks until no snap is running.
func (h *MagneticLassoHandler) Wait() {
	h.wg.Wait()
}

// Close cancels any in-flight snap. Its result is discarded.
func (h *MagneticLassoHandler) Close() {
	h.mu.Lock()
	h.abort()
	h.mu.Unlock()
}

// abort invalidates the in-flight snap. Called with mu held.
func (h *MagneticLassoHandler) abort() {
	h.generation++
	if h.cancelSnap != nil {
		h.cancelSnap()
		h.cancelSnap = nil
	}
}

// snap starts contour snapping for a finished path. Called with mu held.
func (h *MagneticLassoHandler) snap(l selection.Lasso) {
	if h.finder == nil || h.source == nil {
		return
	}
	framed := l.InViewport(h.viewport)
	if len(framed.Points) < MinSnapPoints {
		return
	}

	engine := crop.NewEngine(h.source, h.canvas, h.viewport)
	scale := engine.Scale()
	if scale == 0 {
		return
	}
	box := framed.Bounds()
	region := selection.NewRectangle(box.TopLeft(), box.BottomRight())

	h.abort()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancelSnap = cancel
	gen := h.generation
	progress := h.progress

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		if progress != nil {
			progress(true)
			defer progress(false)
		}

		img := engine.Crop(region)
		if img == nil {
			return
		}
		pts, err := h.finder.FindContour(ctx, img)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				h.logf("motion: contour snap failed: %v", err)
			}
			return
		}
		h.apply(gen, pts, box.TopLeft(), scale)
	}()
}

// apply maps contour points from the cropped bitmap back to canvas space and
// replaces the path, unless a newer gesture superseded this snap.
func (h *MagneticLassoHandler) apply(gen uint64, pts []image.Point, origin geometry.Point2D, scale float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.generation {
		return
	}
	h.cancelSnap = nil

	out := make([]selection.LassoPoint, 0, len(pts))
	for _, p := range pts {
		c := geometry.Point2D{
			X: float64(p.X)/scale + origin.X,
			Y: float64(p.Y)/scale + origin.Y,
		}
		if !h.viewport.ContainsStrict(c) {
			continue
		}
		dir := selection.DirectionUndefined
		if n := len(out); n > 0 {
			dir = selection.ClassifyDirection(out[n-1].Point(), c)
		}
		out = append(out, selection.LassoPoint{X: c.X, Y: c.Y, Direction: dir})
	}
	if len(out) < selection.LassoMinPoints {
		h.logf("motion: contour snap left %d points in view, keeping freehand path", len(out))
		return
	}

	next := h.lasso.WithPoints(out)
	next.Drawing = false
	next.Moving = false
	h.set(next)
}
