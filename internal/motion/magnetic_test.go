package motion

import (
	"context"
	"image"
	"sync"
	"testing"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedFinder struct {
	mu     sync.Mutex
	pts    []image.Point
	bounds []image.Rectangle
}

func (f *fixedFinder) FindContour(_ context.Context, img image.Image) ([]image.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bounds = append(f.bounds, img.Bounds())
	return f.pts, nil
}

// blockingFinder signals started and then waits for release, ignoring
// cancellation unless honorCtx is set.
type blockingFinder struct {
	started  chan struct{}
	release  chan struct{}
	honorCtx bool
	pts      []image.Point
}

func newBlockingFinder(honorCtx bool, pts []image.Point) *blockingFinder {
	return &blockingFinder{
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
		honorCtx: honorCtx,
		pts:      pts,
	}
}

func (f *blockingFinder) FindContour(ctx context.Context, _ image.Image) ([]image.Point, error) {
	f.started <- struct{}{}
	if f.honorCtx {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	} else {
		<-f.release
	}
	return f.pts, nil
}

// magneticSetup shows a 1000x1000 bitmap on a 500x500 canvas, scale 2.
func magneticSetup(finder ContourFinder) *MagneticLassoHandler {
	canvas := geometry.NewSize(500, 500)
	src := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	v := selection.FitViewport(canvas, geometry.NewSize(1000, 1000))
	return NewMagneticLassoHandler(v, DefaultOptions(), canvas, src, finder, nil)
}

func drawPath(h Handler) {
	feed(h, Down(100, 100), Move(150, 120), Move(200, 200), Move(120, 220), Up(110, 230))
}

func TestMagneticSnapReplacesPath(t *testing.T) {
	finder := &fixedFinder{pts: []image.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}}
	h := magneticSetup(finder)

	var mu sync.Mutex
	var progress []bool
	h.OnProgress(func(busy bool) {
		mu.Lock()
		progress = append(progress, busy)
		mu.Unlock()
	})

	drawPath(h)
	h.Wait()

	require.Len(t, finder.bounds, 1)
	assert.Equal(t, image.Rect(0, 0, 200, 260), finder.bounds[0], "bounding box 100x130 at scale 2")

	l := h.Lasso()
	assert.False(t, l.Drawing)
	assert.Equal(t, []geometry.Point2D{pt(100, 100), pt(150, 100), pt(150, 150), pt(100, 150)}, l.Vertices())

	mu.Lock()
	assert.Equal(t, []bool{true, false}, progress)
	mu.Unlock()
}

func TestMagneticSnapDropsPointsOutsideImage(t *testing.T) {
	// The second point maps to x=500, on the image edge.
	finder := &fixedFinder{pts: []image.Point{{0, 0}, {800, 0}, {100, 100}, {0, 100}}}
	h := magneticSetup(finder)

	drawPath(h)
	h.Wait()
	assert.Equal(t, []geometry.Point2D{pt(100, 100), pt(150, 150), pt(100, 150)}, h.Lasso().Vertices())
}

func TestMagneticSnapKeepsPathWhenNothingFound(t *testing.T) {
	h := magneticSetup(&fixedFinder{})
	drawPath(h)
	h.Wait()
	assert.Len(t, h.Lasso().Points, 5)
}

func TestMagneticNewPressCancelsSnap(t *testing.T) {
	finder := newBlockingFinder(true, []image.Point{{0, 0}, {10, 0}, {10, 10}})
	h := magneticSetup(finder)

	drawPath(h)
	<-finder.started

	feed(h, Down(400, 400))
	h.Wait()

	l := h.Lasso()
	require.Len(t, l.Points, 1)
	assert.True(t, l.Drawing)
}

func TestMagneticStaleResultDropped(t *testing.T) {
	finder := newBlockingFinder(false, []image.Point{{0, 0}, {10, 0}, {10, 10}})
	h := magneticSetup(finder)

	drawPath(h)
	<-finder.started

	feed(h, Down(400, 400), Move(420, 420))
	close(finder.release)
	h.Wait()

	l := h.Lasso()
	assert.Equal(t, []geometry.Point2D{pt(400, 400), pt(420, 420)}, l.Vertices())
}

func TestMagneticWithoutFinderBehavesAsLasso(t *testing.T) {
	h := magneticSetup(nil)
	drawPath(h)
	h.Wait()
	assert.Len(t, h.Lasso().Points, 5)
}

func TestMagneticPathMostlyOutsideNotSnapped(t *testing.T) {
	finder := &fixedFinder{pts: []image.Point{{0, 0}, {10, 0}, {10, 10}}}
	h := magneticSetup(finder)

	// Only the first point lies inside the displayed image.
	feed(h, Down(480, 480), Move(520, 520), Up(540, 540))
	h.Wait()
	assert.Empty(t, finder.bounds)
	assert.Len(t, h.Lasso().Points, 3)
}
