package motion

import (
	"sync"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// RectangleHandler drives a rectangle selection: corner handles resize it,
// a press inside moves it.
type RectangleHandler struct {
	publisher

	mu       sync.Mutex
	opts     Options
	viewport selection.Viewport
	rect     selection.Rectangle
	moving   bool
	// anchor is the pointer offset from LeftTop at press time.
	anchor geometry.Point2D
}

// NewRectangleHandler creates a handler with the default rectangle for v. An
// empty viewport leaves the selection empty until UpdateViewport is called.
func NewRectangleHandler(v selection.Viewport, opts Options) *RectangleHandler {
	h := &RectangleHandler{opts: opts, viewport: v}
	if !v.IsEmpty() {
		h.rect = selection.DefaultRectangle(v.ImageSize, v.ImageOffset)
	}
	h.publish(h.rect)
	return h
}

// Rectangle returns the current rectangle.
func (h *RectangleHandler) Rectangle() selection.Rectangle {
	r, _ := h.Selection().(selection.Rectangle)
	return r
}

// UpdateViewport implements Handler.
func (h *RectangleHandler) UpdateViewport(v selection.Viewport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.viewport = v
	if h.rect.IsEmpty() && !v.IsEmpty() {
		h.set(selection.DefaultRectangle(v.ImageSize, v.ImageOffset))
	}
}

// HandleEvent implements Handler.
func (h *RectangleHandler) HandleEvent(e Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := e.Point()
	switch e.Kind {
	case EventDown:
		h.down(p)
	case EventMove:
		h.move(p)
	case EventUp, EventCancel:
		h.release()
	default:
		return false
	}
	return true
}

func (h *RectangleHandler) down(p geometry.Point2D) {
	if h.rect.IsEmpty() {
		return
	}
	if handle := h.rect.HandleAt(p); handle != selection.RectHandleNone {
		h.set(h.rect.WithActive(handle))
		return
	}
	if h.rect.Contains(p) {
		h.moving = true
		h.anchor = p.Sub(h.rect.LeftTop)
		h.set(h.rect.WithActive(selection.RectHandleNone))
	}
}

func (h *RectangleHandler) move(p geometry.Point2D) {
	switch {
	case h.rect.Active != selection.RectHandleNone:
		next, ok := h.rect.Resize(h.rect.Active, p, selection.MinRectangleSide)
		if !ok || !h.opts.fits(h.viewport, next.Bounds()) {
			return
		}
		h.set(next)

	case h.moving:
		delta := p.Sub(h.anchor).Sub(h.rect.LeftTop)
		if delta.IsZero() {
			return
		}
		next := h.rect.Translate(delta)
		if !h.opts.fits(h.viewport, next.Bounds()) {
			return
		}
		h.set(next)
	}
}

func (h *RectangleHandler) release() {
	h.moving = false
	h.anchor = geometry.Point2D{}
	if h.rect.Active != selection.RectHandleNone {
		h.set(h.rect.WithActive(selection.RectHandleNone))
	}
}

func (h *RectangleHandler) set(r selection.Rectangle) {
	h.rect = r
	h.publish(r)
}
