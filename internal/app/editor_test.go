package app

import (
	"context"
	"errors"
	goimage "image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"snapcrop/internal/contour"
	"snapcrop/internal/image"
	"snapcrop/internal/motion"
	"snapcrop/internal/processor"
	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []EventType
	data   map[EventType][]interface{}
}

func record(e *Editor, types ...EventType) *recorder {
	r := &recorder{data: make(map[EventType][]interface{})}
	for _, t := range types {
		t := t
		e.On(t, func(d interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, t)
			r.data[t] = append(r.data[t], d)
		})
	}
	return r
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data[t])
}

func (r *recorder) last(t EventType) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.data[t]
	if len(d) == 0 {
		return nil
	}
	return d[len(d)-1]
}

func tallImage() *goimage.RGBA {
	img := goimage.NewRGBA(goimage.Rect(0, 0, 1000, 2000))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 80, 120, 255
	}
	return img
}

// newTestEditor shows a 1000x2000 image on a 500x500 canvas: the image is
// drawn at 250x500 from (125,0), four bitmap pixels per canvas pixel.
func newTestEditor(t *testing.T) *Editor {
	e := NewEditor(DefaultSettings())
	e.SetContourFinder(nil)
	e.SetImage(tallImage())
	e.SetCanvasSize(geometry.NewSize(500, 500))
	t.Cleanup(e.Close)
	return e
}

func TestEditorViewport(t *testing.T) {
	e := newTestEditor(t)
	v := e.Viewport()
	assert.Equal(t, geometry.NewSize(250, 500), v.ImageSize)
	assert.Equal(t, geometry.Point2D{X: 125, Y: 0}, v.ImageOffset)
}

func TestEditorSelectToolPlacesDefaultRectangle(t *testing.T) {
	e := newTestEditor(t)
	rec := record(e, EventToolChanged, EventSelectionChanged)

	e.SelectTool(ToolRectangle)
	assert.Equal(t, ToolRectangle, e.Tool())
	assert.Equal(t, ToolRectangle, rec.last(EventToolChanged))

	r, ok := e.Selection().(selection.Rectangle)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 135, Y: 10}, r.LeftTop)
	assert.Equal(t, geometry.Point2D{X: 365, Y: 490}, r.RightBottom)
	assert.Equal(t, r, rec.last(EventSelectionChanged))
}

func TestEditorDefaultGeometryWaitsForCanvas(t *testing.T) {
	e := NewEditor(DefaultSettings())
	defer e.Close()
	e.SetImage(tallImage())
	e.SelectTool(ToolCircle)
	assert.True(t, e.Selection().IsEmpty())

	e.SetCanvasSize(geometry.NewSize(500, 500))
	c, ok := e.Selection().(selection.Circle)
	require.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 250, Y: 250}, c.Center)
}

func TestEditorExportRectangle(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolRectangle)

	out, err := e.Export()
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, goimage.Rect(0, 0, 920, 1920), out.Bounds())
}

func TestEditorExportFollowsGesture(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolRectangle)

	assert.True(t, e.HandleEvent(motion.Down(365, 490)))
	assert.True(t, e.HandleEvent(motion.Move(235, 110)))
	assert.True(t, e.HandleEvent(motion.Up(235, 110)))

	out, err := e.Export()
	require.NoError(t, err)
	assert.Equal(t, goimage.Rect(0, 0, 400, 400), out.Bounds())
}

func TestEditorWholeImageTools(t *testing.T) {
	e := newTestEditor(t)
	src := e.Image()

	for _, tool := range []Tool{ToolFilter, ToolBackgroundRemover} {
		e.SelectTool(tool)
		assert.False(t, e.HandleEvent(motion.Down(200, 200)))
		out, err := e.Export()
		require.NoError(t, err)
		assert.Same(t, src, out)
	}
}

func TestEditorNoImage(t *testing.T) {
	e := NewEditor(DefaultSettings())
	defer e.Close()

	_, err := e.Export()
	assert.ErrorIs(t, err, ErrNoImage)
	assert.ErrorIs(t, e.ApplyFilter(context.Background(), processor.FilterGray), ErrNoImage)
	assert.ErrorIs(t, e.RemoveBackground(context.Background()), ErrNoImage)
}

func TestEditorProcessReplacesImage(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolRectangle)
	rec := record(e, EventBusyChanged, EventImageProcessed, EventSelectionChanged)

	small := goimage.NewRGBA(goimage.Rect(0, 0, 500, 1000))
	err := e.process(context.Background(), processor.ProcessorFunc(func(context.Context, goimage.Image) (goimage.Image, error) {
		return small, nil
	}))
	require.NoError(t, err)

	assert.Same(t, small, e.Image())
	assert.Equal(t, small, rec.last(EventImageProcessed))
	assert.Equal(t, []interface{}{true, false}, rec.data[EventBusyChanged])
	assert.False(t, e.Busy())

	// Same aspect ratio, so the viewport is unchanged and the new handler
	// starts from the default rectangle again.
	assert.Equal(t, geometry.NewSize(250, 500), e.Viewport().ImageSize)
	assert.Equal(t, 1, rec.count(EventSelectionChanged))
	r := e.Selection().(selection.Rectangle)
	assert.Equal(t, geometry.Point2D{X: 135, Y: 10}, r.LeftTop)
}

func TestEditorProcessFailureKeepsState(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolRectangle)
	e.HandleEvent(motion.Down(365, 490))
	e.HandleEvent(motion.Move(300, 400))
	e.HandleEvent(motion.Up(300, 400))
	before := e.Selection()
	src := e.Image()

	rec := record(e, EventError, EventImageProcessed)
	boom := errors.New("boom")
	err := e.process(context.Background(), processor.ProcessorFunc(func(context.Context, goimage.Image) (goimage.Image, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)

	assert.Same(t, src, e.Image())
	assert.Equal(t, before, e.Selection())
	assert.Equal(t, boom, rec.last(EventError))
	assert.Zero(t, rec.count(EventImageProcessed))
	assert.False(t, e.Busy())
}

func TestEditorRejectsConcurrentProcessing(t *testing.T) {
	e := newTestEditor(t)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- e.process(context.Background(), processor.ProcessorFunc(func(_ context.Context, img goimage.Image) (goimage.Image, error) {
			close(started)
			<-release
			return img, nil
		}))
	}()

	<-started
	assert.True(t, e.Busy())
	assert.ErrorIs(t, e.ApplyFilter(context.Background(), processor.FilterGray), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, e.Busy())
}

type stubRemover struct {
	out goimage.Image
	err error
}

func (s stubRemover) RemoveBackground(context.Context, goimage.Image) (goimage.Image, error) {
	return s.out, s.err
}

func TestEditorRemoveBackground(t *testing.T) {
	e := newTestEditor(t)
	rec := record(e, EventError)
	src := e.Image()

	e.SetRemover(stubRemover{})
	err := e.RemoveBackground(context.Background())
	assert.ErrorIs(t, err, processor.ErrNoForeground)
	assert.Same(t, src, e.Image())
	assert.Equal(t, 1, rec.count(EventError))

	fg := goimage.NewRGBA(goimage.Rect(0, 0, 1000, 2000))
	e.SetRemover(stubRemover{out: fg})
	require.NoError(t, e.RemoveBackground(context.Background()))
	assert.Same(t, fg, e.Image())
}

func TestEditorApplyFilter(t *testing.T) {
	e := NewEditor(DefaultSettings())
	defer e.Close()
	img := goimage.NewRGBA(goimage.Rect(0, 0, 80, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	e.SetImage(img)

	require.NoError(t, e.ApplyFilter(context.Background(), processor.FilterSepia))
	assert.Equal(t, goimage.Rect(0, 0, 40, 20), e.Image().Bounds())

	_, err := processor.ParseFilter("nope")
	require.Error(t, err)
	assert.ErrorIs(t, e.ApplyFilter(context.Background(), processor.Filter(-3)), processor.ErrUnknownFilter)
}

func TestEditorSaveExport(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolCircle)
	rec := record(e, EventExported)

	dir := t.TempDir()
	now := time.UnixMilli(1700000000000)
	path, err := e.SaveExport(dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "selection-1700000000000.png"), path)
	assert.Equal(t, path, rec.last(EventExported))

	got, err := image.Load(path)
	require.NoError(t, err)
	assert.Equal(t, goimage.Rect(0, 0, 840, 840), got.Bounds())

	// Corners of a circular crop are transparent, the centre is not.
	_, _, _, a := got.At(0, 0).RGBA()
	assert.Zero(t, a)
	assert.Equal(t, color.NRGBAModel.Convert(color.RGBA{R: 40, G: 80, B: 120, A: 255}), color.NRGBAModel.Convert(got.At(420, 420)))
}

func TestEditorSaveExportEmptySelection(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolLasso)
	rec := record(e, EventError)

	dir := t.TempDir()
	_, err := e.SaveExport(dir, time.Now())
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, 1, rec.count(EventError))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEditorLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, image.Save(path, goimage.NewRGBA(goimage.Rect(0, 0, 30, 20))))

	e := NewEditor(DefaultSettings())
	defer e.Close()
	rec := record(e, EventImageLoaded, EventError)

	require.NoError(t, e.LoadImage(path))
	assert.Equal(t, goimage.Rect(0, 0, 30, 20), e.Image().Bounds())
	assert.Equal(t, 1, rec.count(EventImageLoaded))

	assert.Error(t, e.LoadImage(filepath.Join(t.TempDir(), "missing.png")))
	assert.Equal(t, 1, rec.count(EventError))
	assert.Equal(t, goimage.Rect(0, 0, 30, 20), e.Image().Bounds())
}

type squareFinder struct{}

func (squareFinder) FindContour(context.Context, goimage.Image) ([]goimage.Point, error) {
	return []goimage.Point{{0, 0}, {40, 0}, {40, 40}, {0, 40}}, nil
}

func TestEditorMagneticLasso(t *testing.T) {
	e := newTestEditor(t)
	e.SetContourFinder(squareFinder{})
	e.SelectTool(ToolMagneticLasso)
	rec := record(e, EventSnapProgress)

	for _, ev := range []motion.Event{
		motion.Down(200, 100), motion.Move(260, 120), motion.Move(300, 200),
		motion.Move(220, 220), motion.Up(210, 230),
	} {
		e.HandleEvent(ev)
	}
	m, ok := e.Handler().(*motion.MagneticLassoHandler)
	require.True(t, ok)
	m.Wait()

	assert.Equal(t, 2, rec.count(EventSnapProgress))
	l := e.Selection().(selection.Lasso)
	// Four bitmap pixels per canvas pixel: a 40px square is 10 canvas units.
	assert.Equal(t, []geometry.Point2D{{X: 200, Y: 100}, {X: 210, Y: 100}, {X: 210, Y: 110}, {X: 200, Y: 110}}, l.Vertices())
}

// blockingRemover holds a snap in flight until released or cancelled.
type blockingRemover struct {
	started chan struct{}
	release chan struct{}
	once    *sync.Once
}

func newBlockingRemover() blockingRemover {
	return blockingRemover{started: make(chan struct{}), release: make(chan struct{}), once: &sync.Once{}}
}

func (b blockingRemover) RemoveBackground(ctx context.Context, _ goimage.Image) (goimage.Image, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestEditorSettingsChangeDuringSnap(t *testing.T) {
	e := newTestEditor(t)
	configured := contour.NewSnapper()
	rm := newBlockingRemover()
	configured.Remover = rm
	e.SetContourFinder(configured)
	e.SelectTool(ToolMagneticLasso)
	m, ok := e.Handler().(*motion.MagneticLassoHandler)
	require.True(t, ok)

	for _, ev := range []motion.Event{
		motion.Down(200, 100), motion.Move(260, 120), motion.Move(300, 200),
		motion.Move(220, 220), motion.Up(210, 230),
	} {
		e.HandleEvent(ev)
	}
	<-rm.started

	s := e.Settings()
	s.Snapper.CannyLow = 10
	require.NoError(t, e.UpdateSettings(s))
	e.SetLogger(log.New(io.Discard, "", 0))
	close(rm.release)
	m.Wait()

	assert.Equal(t, contour.DefaultParams(), configured.Params, "the configured snapper is never modified")
	assert.Nil(t, configured.Logger)
	assert.NotSame(t, m, e.Handler())
}

func TestEditorUpdateSettingsKeepsSelection(t *testing.T) {
	e := newTestEditor(t)
	e.SelectTool(ToolRectangle)
	e.HandleEvent(motion.Down(365, 490))
	e.HandleEvent(motion.Move(235, 110))
	e.HandleEvent(motion.Up(235, 110))
	before := e.Handler()
	sel := e.Selection()

	s := e.Settings()
	s.SaveDir = t.TempDir()
	s.FilterDownscale = 3
	require.NoError(t, e.UpdateSettings(s))
	assert.Same(t, before, e.Handler())
	assert.Equal(t, sel, e.Selection())
	assert.Equal(t, 3, e.Settings().FilterDownscale)

	s.AllowOutsideImage = false
	require.NoError(t, e.UpdateSettings(s))
	assert.NotSame(t, before, e.Handler())
	assert.False(t, e.Selection().IsEmpty())
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.True(t, s.AllowOutsideImage)
	assert.Equal(t, ToolRectangle, s.LastTool)

	s.FilterDownscale = 0
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Snapper.BlurSize = 4
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.LastTool = Tool(42)
	assert.Error(t, s.Validate())
}

func TestParseTool(t *testing.T) {
	for _, tool := range Tools() {
		got, err := ParseTool(tool.String())
		require.NoError(t, err)
		assert.Equal(t, tool, got)
	}
	_, err := ParseTool("pen")
	assert.Error(t, err)
	assert.True(t, ToolFilter.WholeImage())
	assert.False(t, ToolLasso.WholeImage())
}
