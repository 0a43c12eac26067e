package motion

import (
	"sync"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// CircleHandler drives a circle selection: compass handles change the
// radius, a press inside the bounding square moves it.
type CircleHandler struct {
	publisher

	mu       sync.Mutex
	opts     Options
	viewport selection.Viewport
	circle   selection.Circle
	moving   bool
	// anchor is the pointer offset from the center at press time.
	anchor geometry.Point2D
}

// NewCircleHandler creates a handler with the default circle centred on the
// displayed image.
func NewCircleHandler(v selection.Viewport, opts Options) *CircleHandler {
	h := &CircleHandler{opts: opts, viewport: v}
	if !v.IsEmpty() {
		h.circle = defaultCircle(v)
	}
	h.publish(h.circle)
	return h
}

func defaultCircle(v selection.Viewport) selection.Circle {
	c := selection.DefaultCircle(v.ImageSize, v.Bounds().Center())
	if c.Radius < selection.MinCircleRadius {
		c.Radius = selection.MinCircleRadius
	}
	return c
}

// Circle returns the current circle.
func (h *CircleHandler) Circle() selection.Circle {
	c, _ := h.Selection().(selection.Circle)
	return c
}

// UpdateViewport implements Handler.
func (h *CircleHandler) UpdateViewport(v selection.Viewport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.viewport = v
	if h.circle.IsEmpty() && !v.IsEmpty() {
		h.set(defaultCircle(v))
	}
}

// HandleEvent implements Handler.
func (h *CircleHandler) HandleEvent(e Event) bool {
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

func (h *CircleHandler) down(p geometry.Point2D) {
	if h.circle.IsEmpty() {
		return
	}
	if handle := h.circle.HandleAt(p); handle != selection.CircleHandleNone {
		h.set(h.circle.WithActive(handle))
		return
	}
	if h.circle.Contains(p) {
		h.moving = true
		h.anchor = p.Sub(h.circle.Center)
		h.set(h.circle.WithActive(selection.CircleHandleNone))
	}
}

func (h *CircleHandler) move(p geometry.Point2D) {
	switch {
	case h.circle.Active != selection.CircleHandleNone:
		r := h.circle.RadiusFor(h.circle.Active, p)
		if r < selection.MinCircleRadius {
			return
		}
		next := h.circle.WithRadius(r)
		if !h.opts.fits(h.viewport, next.Bounds()) {
			return
		}
		h.set(next)

	case h.moving:
		center := p.Sub(h.anchor)
		if center == h.circle.Center {
			return
		}
		next := h.circle.WithCenter(center)
		if !h.opts.fits(h.viewport, next.Bounds()) {
			return
		}
		h.set(next)
	}
}

func (h *CircleHandler) release() {
	h.moving = false
	h.anchor = geometry.Point2D{}
	if h.circle.Active != selection.CircleHandleNone {
		h.set(h.circle.WithActive(selection.CircleHandleNone))
	}
}

func (h *CircleHandler) set(c selection.Circle) {
	h.circle = c
	h.publish(c)
}
