// Package app coordinates the editor: the loaded image, the active tool and
// its gesture handler, whole-image processing, and change events.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"log"
	"path/filepath"
	"sync"
	"time"

	"snapcrop/internal/contour"
	"snapcrop/internal/crop"
	"snapcrop/internal/image"
	"snapcrop/internal/motion"
	"snapcrop/internal/processor"
	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrBusy is returned while another whole-image operation is running.
	ErrBusy = errors.New("editor is busy")
	// ErrEmptySelection is returned when there is nothing to export.
	ErrEmptySelection = errors.New("selection is empty")
)

// EventType identifies different editor events. The event data is the new
// image for image events, the Tool, the selection.State, a bool for progress
// and busy events, the written path for EventExported and the error for
// EventError.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventToolChanged
	EventSelectionChanged
	EventSnapProgress
	EventBusyChanged
	EventImageProcessed
	EventExported
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Editor holds the editing session. All methods are safe for concurrent use;
// listeners may be called from a background goroutine.
type Editor struct {
	mu sync.RWMutex

	settings Settings
	source   goimage.Image
	canvas   geometry.Size
	viewport selection.Viewport
	tool     Tool
	handler  motion.Handler
	busy     bool

	finder  motion.ContourFinder
	remover processor.BackgroundRemover
	logger  *log.Logger

	listeners map[EventType][]EventListener
}

// NewEditor creates an editor with the given settings. The magnetic lasso
// snaps with a contour.Snapper backed by a ThresholdRemover.
func NewEditor(settings Settings) *Editor {
	remover := processor.NewThresholdRemover()
	snapper := contour.NewSnapper()
	snapper.Params = settings.Snapper
	snapper.Remover = remover

	e := &Editor{
		settings:  settings,
		finder:    snapper,
		remover:   remover,
		listeners: make(map[EventType][]EventListener),
	}
	e.handler = e.newHandler(ToolNone)
	return e
}

// On registers an event listener for the specified event type.
func (e *Editor) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *Editor) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetLogger replaces the logger used for background work. Handlers created
// afterwards use it.
func (e *Editor) SetLogger(l *log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = l
}

// SetContourFinder replaces the magnetic lasso's contour finder. Nil
// disables snapping. Takes effect on the next SelectTool. A *contour.Snapper
// is copied for each handler and never modified.
func (e *Editor) SetContourFinder(f motion.ContourFinder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finder = f
}

// SetRemover replaces the background remover.
func (e *Editor) SetRemover(r processor.BackgroundRemover) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remover = r
}

func (e *Editor) logf(format string, args ...interface{}) {
	e.mu.RLock()
	l := e.logger
	e.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Settings returns the current settings.
func (e *Editor) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// UpdateSettings validates and applies s. The active tool restarts only when
// an option its handler was built with changed.
func (e *Editor) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	e.mu.Lock()
	old := e.settings
	e.settings = s
	tool := e.tool
	e.mu.Unlock()

	if old.AllowOutsideImage != s.AllowOutsideImage || old.Snapper != s.Snapper {
		e.SelectTool(tool)
	}
	return nil
}

// Image returns the current source image, or nil.
func (e *Editor) Image() goimage.Image {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source
}

// Viewport returns where the image is drawn on the canvas.
func (e *Editor) Viewport() selection.Viewport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.viewport
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tool
}

// Busy reports whether a whole-image operation is running.
func (e *Editor) Busy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.busy
}

// LoadImage decodes the image at path and makes it the source.
func (e *Editor) LoadImage(path string) error {
	img, err := image.Load(path)
	if err != nil {
		e.fail(err)
		return err
	}
	e.logf("editor: loaded %s (%dx%d)", filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy())
	e.SetImage(img)
	return nil
}

// SetImage makes img the source and resets the active tool's selection.
func (e *Editor) SetImage(img goimage.Image) {
	e.replaceSource(img)
	e.Emit(EventImageLoaded, img)
}

// replaceSource swaps the source image and rebuilds the handler, since
// selection geometry is relative to the old image's viewport.
func (e *Editor) replaceSource(img goimage.Image) {
	e.mu.Lock()
	old := e.handler
	e.source = img
	e.viewport = e.fitLocked()
	e.handler = e.newHandlerLocked(e.tool)
	h := e.handler
	e.mu.Unlock()

	closeHandler(old)
	e.Emit(EventSelectionChanged, h.Selection())
}

// SetCanvasSize records the drawing surface size, recomputes the viewport
// and tells the active handler. The first call with a known image places
// default rectangle and circle geometry.
func (e *Editor) SetCanvasSize(size geometry.Size) {
	e.mu.Lock()
	e.canvas = size
	e.viewport = e.fitLocked()
	v := e.viewport
	h := e.handler
	e.mu.Unlock()

	if m, ok := h.(*motion.MagneticLassoHandler); ok {
		m.UpdateCanvas(size)
	}
	h.UpdateViewport(v)
}

func (e *Editor) fitLocked() selection.Viewport {
	if e.source == nil || e.canvas.IsEmpty() {
		return selection.Viewport{}
	}
	b := e.source.Bounds()
	return selection.FitViewport(e.canvas, geometry.NewSize(float64(b.Dx()), float64(b.Dy())))
}

// SelectTool discards the current handler and starts a fresh one for tool.
func (e *Editor) SelectTool(tool Tool) {
	e.mu.Lock()
	old := e.handler
	e.tool = tool
	e.handler = e.newHandlerLocked(tool)
	h := e.handler
	e.mu.Unlock()

	closeHandler(old)
	e.Emit(EventToolChanged, tool)
	e.Emit(EventSelectionChanged, h.Selection())
}

func (e *Editor) newHandler(tool Tool) motion.Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newHandlerLocked(tool)
}

func (e *Editor) newHandlerLocked(tool Tool) motion.Handler {
	h := motion.New(tool.motionTool(), motion.Params{
		Viewport: e.viewport,
		Canvas:   e.canvas,
		Source:   e.source,
		Options:  motion.Options{AllowOutsideImage: e.settings.AllowOutsideImage},
		Finder:   e.finderLocked(),
		Logger:   e.logger,
	})
	h.OnChange(func(s selection.State) {
		e.Emit(EventSelectionChanged, s)
	})
	if m, ok := h.(*motion.MagneticLassoHandler); ok {
		m.OnProgress(func(busy bool) {
			e.Emit(EventSnapProgress, busy)
		})
	}
	return h
}

// finderLocked returns the contour finder for a new handler. A Snapper is
// copied with the current parameters and logger, so a snap still running in
// an old handler keeps reading its own copy.
func (e *Editor) finderLocked() motion.ContourFinder {
	sn, ok := e.finder.(*contour.Snapper)
	if !ok || sn == nil {
		return e.finder
	}
	cp := *sn
	cp.Params = e.settings.Snapper
	cp.Logger = e.logger
	return &cp
}

func closeHandler(h motion.Handler) {
	if c, ok := h.(interface{ Close() }); ok {
		c.Close()
	}
}

// Handler returns the active gesture handler.
func (e *Editor) Handler() motion.Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handler
}

// HandleEvent forwards a pointer event to the active handler.
func (e *Editor) HandleEvent(ev motion.Event) bool {
	return e.Handler().HandleEvent(ev)
}

// Selection returns the active handler's current selection.
func (e *Editor) Selection() selection.State {
	return e.Handler().Selection()
}

// Export returns the selected pixels at source resolution. The filter and
// background remover tools export the whole image. A nil image with a nil
// error means the selection is empty.
func (e *Editor) Export() (goimage.Image, error) {
	e.mu.RLock()
	src, canvas, v, tool, h := e.source, e.canvas, e.viewport, e.tool, e.handler
	e.mu.RUnlock()

	if src == nil {
		return nil, ErrNoImage
	}
	if tool.WholeImage() {
		return src, nil
	}
	out := crop.NewEngine(src, canvas, v).Crop(h.Selection())
	if out == nil {
		return nil, nil
	}
	return out, nil
}

// SaveExport writes Export's result into dir under a name derived from now
// and returns the file path.
func (e *Editor) SaveExport(dir string, now time.Time) (string, error) {
	img, err := e.Export()
	if err == nil && img == nil {
		err = ErrEmptySelection
	}
	if err != nil {
		e.fail(err)
		return "", err
	}

	path := filepath.Join(dir, image.ExportFileName(now))
	if err := image.Save(path, img); err != nil {
		e.fail(err)
		return "", err
	}
	e.logf("editor: exported %s", path)
	e.Emit(EventExported, path)
	return path, nil
}

// ApplyFilter replaces the image with a filtered copy.
func (e *Editor) ApplyFilter(ctx context.Context, f processor.Filter) error {
	e.mu.RLock()
	downscale := e.settings.FilterDownscale
	e.mu.RUnlock()
	return e.process(ctx, processor.FilterProcessor{Filter: f, Downscale: downscale})
}

// RemoveBackground replaces the image with its foreground on a transparent
// background.
func (e *Editor) RemoveBackground(ctx context.Context) error {
	e.mu.RLock()
	r := e.remover
	e.mu.RUnlock()
	if r == nil {
		err := fmt.Errorf("failed to remove background: %w", processor.ErrNoForeground)
		e.fail(err)
		return err
	}
	return e.process(ctx, processor.RemovalProcessor{Remover: r})
}

// process runs p on the source. Only one runs at a time; on failure the
// image and selection are left as they were.
func (e *Editor) process(ctx context.Context, p processor.Processor) error {
	e.mu.Lock()
	if e.source == nil {
		e.mu.Unlock()
		return ErrNoImage
	}
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	e.busy = true
	src := e.source
	e.mu.Unlock()
	e.Emit(EventBusyChanged, true)

	out, err := p.Process(ctx, src)

	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
	e.Emit(EventBusyChanged, false)

	if err != nil {
		e.fail(err)
		return err
	}
	e.replaceSource(out)
	e.Emit(EventImageProcessed, out)
	return nil
}

// fail logs err and reports it to listeners.
func (e *Editor) fail(err error) {
	e.logf("editor: %v", err)
	e.Emit(EventError, err)
}

// Close stops background work owned by the active handler.
func (e *Editor) Close() {
	closeHandler(e.Handler())
}
