// Package canvas provides the selection canvas: the loaded image fitted to
// the widget with the active selection drawn over it.
package canvas

import (
	"image"
	"sync"

	"snapcrop/internal/app"
	"snapcrop/internal/motion"
	"snapcrop/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// SelectionCanvas forwards pointer input to an editor and repaints when the
// editor's image or selection changes. Canvas coordinates are fyne units
// relative to the widget's top-left corner.
type SelectionCanvas struct {
	widget.BaseWidget

	editor *app.Editor
	raster *fynecanvas.Raster

	mu       sync.Mutex
	preview  Preview
	pressed  bool
	lastPos  fyne.Position
	lastSize fyne.Size
}

var (
	_ fyne.Draggable    = (*SelectionCanvas)(nil)
	_ desktop.Mouseable = (*SelectionCanvas)(nil)
)

// NewSelectionCanvas creates a canvas bound to e.
func NewSelectionCanvas(e *app.Editor) *SelectionCanvas {
	c := &SelectionCanvas{editor: e}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.raster.SetMinSize(fyne.NewSize(400, 300))

	refresh := func(interface{}) { c.raster.Refresh() }
	e.On(app.EventImageLoaded, refresh)
	e.On(app.EventImageProcessed, refresh)
	e.On(app.EventSelectionChanged, refresh)
	e.On(app.EventToolChanged, refresh)

	c.ExtendBaseWidget(c)
	return c
}

func (c *SelectionCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}

// Resize reports the new canvas size to the editor.
func (c *SelectionCanvas) Resize(size fyne.Size) {
	c.BaseWidget.Resize(size)

	c.mu.Lock()
	changed := size != c.lastSize
	c.lastSize = size
	c.mu.Unlock()

	if changed && size.Width > 0 && size.Height > 0 {
		c.editor.SetCanvasSize(geometry.NewSize(float64(size.Width), float64(size.Height)))
		c.raster.Refresh()
	}
}

// MouseDown starts a gesture with the primary button.
func (c *SelectionCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.mu.Lock()
	c.pressed = true
	c.lastPos = ev.Position
	c.mu.Unlock()
	c.send(motion.EventDown, ev.Position)
}

// MouseUp ends the gesture.
func (c *SelectionCanvas) MouseUp(ev *desktop.MouseEvent) {
	c.mu.Lock()
	wasPressed := c.pressed
	c.pressed = false
	c.mu.Unlock()
	if wasPressed {
		c.send(motion.EventUp, ev.Position)
	}
}

// Dragged moves the gesture. Without a preceding MouseDown, as on touch
// screens, the drag's origin starts it.
func (c *SelectionCanvas) Dragged(ev *fyne.DragEvent) {
	c.mu.Lock()
	started := !c.pressed
	c.pressed = true
	c.lastPos = ev.Position
	c.mu.Unlock()

	if started {
		c.send(motion.EventDown, ev.Position.Subtract(ev.Dragged))
	}
	c.send(motion.EventMove, ev.Position)
}

// DragEnd ends the gesture at the last dragged position when no MouseUp
// has done so, as on touch screens.
func (c *SelectionCanvas) DragEnd() {
	c.mu.Lock()
	pressed, pos := c.pressed, c.lastPos
	c.pressed = false
	c.mu.Unlock()
	if pressed {
		c.send(motion.EventUp, pos)
	}
}

func (c *SelectionCanvas) send(kind motion.EventKind, pos fyne.Position) {
	c.editor.HandleEvent(motion.Event{Kind: kind, X: float64(pos.X), Y: float64(pos.Y)})
}

// draw is the raster drawing function.
func (c *SelectionCanvas) draw(w, h int) image.Image {
	size := c.Size()
	unit := 1.0
	if size.Width > 0 {
		unit = float64(w) / float64(size.Width)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return Frame{
		Width:     w,
		Height:    h,
		Unit:      unit,
		Image:     c.editor.Image(),
		Viewport:  c.editor.Viewport(),
		Selection: c.editor.Selection(),
	}.Render(&c.preview)
}
