// Package motion turns pointer events into selection changes.
//
// Each selection tool has a Handler that owns its selection privately and
// publishes an immutable snapshot after every change. Events must be fed
// in order from a single goroutine; Selection may be read from any goroutine
// at any time.
package motion

import (
	"sync"
	"sync/atomic"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

// EventKind is the pointer action of an Event.
type EventKind int

const (
	EventDown EventKind = iota
	EventMove
	EventUp
	// EventCancel aborts the gesture, e.g. when the pointer leaves the canvas.
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventDown:
		return "Down"
	case EventMove:
		return "Move"
	case EventUp:
		return "Up"
	case EventCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// Event is a pointer event in canvas pixels.
type Event struct {
	Kind EventKind
	X, Y float64
}

// Down, Move and Up build events at (x, y).
func Down(x, y float64) Event { return Event{Kind: EventDown, X: x, Y: y} }
func Move(x, y float64) Event { return Event{Kind: EventMove, X: x, Y: y} }
func Up(x, y float64) Event   { return Event{Kind: EventUp, X: x, Y: y} }

// Point returns the event position.
func (e Event) Point() geometry.Point2D {
	return geometry.Point2D{X: e.X, Y: e.Y}
}

// Handler is the gesture state machine of one selection tool.
type Handler interface {
	// HandleEvent applies a pointer event and reports whether it was consumed.
	HandleEvent(e Event) bool
	// UpdateViewport records where the image is displayed. It is cheap and
	// idempotent; the first non-empty viewport places the default shape.
	UpdateViewport(v selection.Viewport)
	// Selection returns the latest published snapshot.
	Selection() selection.State
	// OnChange registers a listener called after every published change.
	OnChange(fn func(selection.State))
}

// Options configures gesture constraints.
type Options struct {
	// AllowOutsideImage lets shapes be resized or moved past the displayed
	// image. When false such updates are rejected and the prior geometry kept.
	AllowOutsideImage bool
}

// DefaultOptions returns the permissive defaults.
func DefaultOptions() Options {
	return Options{AllowOutsideImage: true}
}

// fits reports whether r may be placed given the options and viewport.
func (o Options) fits(v selection.Viewport, r geometry.Rect) bool {
	if o.AllowOutsideImage || v.IsEmpty() {
		return true
	}
	return v.Bounds().ContainsRect(r)
}

type snapshot struct {
	state selection.State
}

// publisher stores the current snapshot and fans it out to listeners.
// Listeners run on the goroutine that published and must not feed events
// back into the handler.
type publisher struct {
	current   atomic.Pointer[snapshot]
	lmu       sync.RWMutex
	listeners []func(selection.State)
}

// Selection returns the latest snapshot, never nil.
func (p *publisher) Selection() selection.State {
	if s := p.current.Load(); s != nil && s.state != nil {
		return s.state
	}
	return selection.Empty{}
}

// OnChange registers a change listener.
func (p *publisher) OnChange(fn func(selection.State)) {
	if fn == nil {
		return
	}
	p.lmu.Lock()
	defer p.lmu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *publisher) publish(s selection.State) {
	p.current.Store(&snapshot{state: s})

	p.lmu.RLock()
	listeners := p.listeners
	p.lmu.RUnlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// EmptyHandler is used by tools that do not select. It consumes nothing.
type EmptyHandler struct {
	publisher
}

// NewEmptyHandler creates a no-op handler.
func NewEmptyHandler() *EmptyHandler {
	return &EmptyHandler{}
}

func (h *EmptyHandler) HandleEvent(Event) bool            { return false }
func (h *EmptyHandler) UpdateViewport(selection.Viewport) {}
