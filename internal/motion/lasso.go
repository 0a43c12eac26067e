package motion

import (
	"sync"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// LassoHandler drives a freehand selection. A press outside the current
// path starts a new one; a press inside its bounding box moves it.
type LassoHandler struct {
	publisher

	mu       sync.Mutex
	opts     Options
	viewport selection.Viewport
	lasso    selection.Lasso
	// anchor is the pointer offset from the first point at press time.
	anchor geometry.Point2D

	// Hooks used by the magnetic variant, called with mu held.
	pressed  func()
	finished func(selection.Lasso)
}

// NewLassoHandler creates a handler with an empty path.
func NewLassoHandler(v selection.Viewport, opts Options) *LassoHandler {
	h := &LassoHandler{opts: opts, viewport: v}
	h.publish(h.lasso)
	return h
}

// Lasso returns the current path.
func (h *LassoHandler) Lasso() selection.Lasso {
	l, _ := h.Selection().(selection.Lasso)
	return l
}

// UpdateViewport implements Handler.
func (h *LassoHandler) UpdateViewport(v selection.Viewport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewport = v
}

// HandleEvent implements Handler.
func (h *LassoHandler) HandleEvent(e Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := e.Point()
	switch e.Kind {
	case EventDown:
		h.down(p)
	case EventMove:
		h.move(p)
	case EventUp:
		h.up(p)
	case EventCancel:
		h.cancel()
	default:
		return false
	}
	return true
}

// allowed reports whether a drawn point may be placed at p.
func (h *LassoHandler) allowed(p geometry.Point2D) bool {
	if h.opts.AllowOutsideImage || h.viewport.IsEmpty() {
		return true
	}
	return h.viewport.Bounds().Contains(p)
}

func (h *LassoHandler) down(p geometry.Point2D) {
	if h.pressed != nil {
		h.pressed()
	}

	if !h.lasso.Drawing && h.lasso.Contains(p) {
		h.anchor = p.Sub(h.lasso.Points[0].Point())
		next := h.lasso
		next.Moving = true
		h.set(next)
		return
	}

	if !h.allowed(p) {
		return
	}
	h.set(selection.Lasso{
		Points:  []selection.LassoPoint{{X: p.X, Y: p.Y, Direction: selection.DirectionUndefined}},
		Drawing: true,
	})
}

func (h *LassoHandler) move(p geometry.Point2D) {
	switch {
	case h.lasso.Moving:
		delta := p.Sub(h.anchor).Sub(h.lasso.Points[0].Point())
		if delta.IsZero() {
			return
		}
		next := h.lasso.Translate(delta)
		if !h.opts.fits(h.viewport, next.Bounds()) {
			return
		}
		h.set(next)

	case h.lasso.Drawing:
		last, ok := h.lasso.Last()
		if !ok || last.IsLast {
			return
		}
		if !selection.SpacedEnough(last.Point(), p) || !h.allowed(p) {
			return
		}
		h.set(h.lasso.Append(selection.LassoPoint{
			X:         p.X,
			Y:         p.Y,
			Direction: selection.ClassifyDirection(last.Point(), p),
			IsLast:    h.lasso.ClosesPath(p),
		}))
	}
}

func (h *LassoHandler) up(p geometry.Point2D) {
	switch {
	case h.lasso.Moving:
		h.stopMoving()

	case h.lasso.Drawing:
		if len(h.lasso.Points) < selection.LassoMinPoints {
			h.set(selection.Lasso{})
			return
		}
		next := h.lasso
		if last, _ := next.Last(); !last.IsLast && h.allowed(p) {
			next = next.Append(selection.LassoPoint{
				X:         p.X,
				Y:         p.Y,
				Direction: selection.ClassifyDirection(last.Point(), p),
			})
		}
		next.Drawing = false
		h.set(next)
		if h.finished != nil {
			h.finished(next)
		}
	}
}

func (h *LassoHandler) cancel() {
	switch {
	case h.lasso.Moving:
		h.stopMoving()
	case h.lasso.Drawing:
		h.set(selection.Lasso{})
	}
}

func (h *LassoHandler) stopMoving() {
	h.anchor = geometry.Point2D{}
	next := h.lasso
	next.Moving = false
	h.set(next)
}

func (h *LassoHandler) set(l selection.Lasso) {
	h.lasso = l
	h.publish(l)
}
