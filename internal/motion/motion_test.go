package motion

import (
	"math/rand"
	"testing"

	"snapcrop/internal/selection"
	"snapcrop/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

// sampleViewport is an image displayed at 300x400 from (20,50).
func sampleViewport() selection.Viewport {
	return selection.Viewport{ImageSize: geometry.NewSize(300, 400), ImageOffset: pt(20, 50)}
}

func feed(h Handler, events ...Event) {
	for _, e := range events {
		h.HandleEvent(e)
	}
}

func TestRectangleDragRightBottom(t *testing.T) {
	h := NewRectangleHandler(sampleViewport(), DefaultOptions())
	r := h.Rectangle()
	require.Equal(t, pt(30, 60), r.LeftTop)
	require.Equal(t, pt(310, 440), r.RightBottom)

	assert.True(t, h.HandleEvent(Down(310, 440)))
	assert.Equal(t, selection.RectHandleRightBottom, h.Rectangle().Active)

	assert.True(t, h.HandleEvent(Move(290, 420)))
	r = h.Rectangle()
	assert.Equal(t, pt(290, 420), r.RightBottom)
	assert.Equal(t, 290.0, r.RightTop.X)
	assert.Equal(t, 420.0, r.LeftBottom.Y)
	assert.Equal(t, pt(30, 60), r.LeftTop)

	assert.True(t, h.HandleEvent(Up(290, 420)))
	assert.Equal(t, selection.RectHandleNone, h.Rectangle().Active)
}

func TestRectangleResizeBelowMinimumKeepsGeometry(t *testing.T) {
	h := NewRectangleHandler(sampleViewport(), DefaultOptions())
	before := h.Rectangle()

	feed(h, Down(310, 440), Move(50, 70))
	after := h.Rectangle()
	assert.Equal(t, before.LeftTop, after.LeftTop)
	assert.Equal(t, before.RightBottom, after.RightBottom)
	assert.Equal(t, before.Size, after.Size)
}

func TestRectangleMoveUsesAnchor(t *testing.T) {
	h := NewRectangleHandler(sampleViewport(), DefaultOptions())

	feed(h, Down(150, 200), Move(160, 210))
	r := h.Rectangle()
	assert.Equal(t, pt(40, 70), r.LeftTop)
	assert.Equal(t, pt(320, 450), r.RightBottom)

	// Repeating the position does not drift.
	feed(h, Move(160, 210), Move(160, 210))
	assert.Equal(t, pt(40, 70), h.Rectangle().LeftTop)

	// The pointer may leave the shape while dragging.
	feed(h, Move(600, 210))
	assert.Equal(t, pt(480, 70), h.Rectangle().LeftTop)

	feed(h, Up(600, 210), Move(0, 0))
	assert.Equal(t, pt(480, 70), h.Rectangle().LeftTop, "moves after release are ignored")
}

func TestRectangleOutsideImageRejected(t *testing.T) {
	strict := NewRectangleHandler(sampleViewport(), Options{AllowOutsideImage: false})
	feed(strict, Down(150, 200), Move(130, 200))
	assert.Equal(t, pt(30, 60), strict.Rectangle().LeftTop, "left edge would pass the image")

	feed(strict, Move(145, 195))
	assert.Equal(t, pt(25, 55), strict.Rectangle().LeftTop)

	loose := NewRectangleHandler(sampleViewport(), DefaultOptions())
	feed(loose, Down(150, 200), Move(130, 200))
	assert.Equal(t, pt(10, 60), loose.Rectangle().LeftTop)
}

func TestRectangleWaitsForViewport(t *testing.T) {
	h := NewRectangleHandler(selection.Viewport{}, DefaultOptions())
	assert.True(t, h.Selection().IsEmpty())
	assert.True(t, h.HandleEvent(Down(30, 60)), "events are consumed even when empty")

	h.UpdateViewport(sampleViewport())
	assert.Equal(t, pt(30, 60), h.Rectangle().LeftTop)

	// Later layouts keep the user's geometry.
	feed(h, Down(30, 60), Move(40, 70), Up(40, 70))
	h.UpdateViewport(sampleViewport())
	assert.Equal(t, pt(40, 70), h.Rectangle().LeftTop)
}

func TestUnknownEventNotConsumed(t *testing.T) {
	handlers := []Handler{
		NewRectangleHandler(sampleViewport(), DefaultOptions()),
		NewCircleHandler(sampleViewport(), DefaultOptions()),
		NewLassoHandler(sampleViewport(), DefaultOptions()),
	}
	for _, h := range handlers {
		assert.False(t, h.HandleEvent(Event{Kind: EventKind(42)}))
	}
	assert.False(t, NewEmptyHandler().HandleEvent(Down(1, 1)))
	assert.Equal(t, selection.KindNone, NewEmptyHandler().Selection().Kind())
}

func squareViewport() selection.Viewport {
	return selection.Viewport{ImageSize: geometry.NewSize(400, 400)}
}

func TestCircleDefaultAndResize(t *testing.T) {
	h := NewCircleHandler(squareViewport(), DefaultOptions())
	c := h.Circle()
	require.Equal(t, pt(200, 200), c.Center)
	require.Equal(t, 180.0, c.Radius)

	feed(h, Down(200, 20))
	assert.Equal(t, selection.CircleHandleTop, h.Circle().Active)

	feed(h, Move(200, 170))
	assert.Equal(t, 180.0, h.Circle().Radius, "radius 30 is below the floor")

	feed(h, Move(260, 100))
	assert.Equal(t, 100.0, h.Circle().Radius, "vertical handle follows y only")

	feed(h, Up(260, 100), Down(300, 200), Move(350, 250))
	assert.Equal(t, selection.CircleHandleRight, h.Circle().Active)
	assert.Equal(t, 150.0, h.Circle().Radius)
}

func TestCircleRadiusNeverBelowMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := NewCircleHandler(squareViewport(), DefaultOptions())

	for i := 0; i < 500; i++ {
		c := h.Circle()
		if i%25 == 0 {
			handles := []geometry.Point2D{selection.TopHandle(c), selection.BottomHandle(c), selection.LeftHandle(c), selection.RightHandle(c)}
			p := handles[rng.Intn(len(handles))]
			feed(h, Up(p.X, p.Y), Down(p.X, p.Y))
		}
		feed(h, Move(rng.Float64()*400, rng.Float64()*400))
		require.GreaterOrEqual(t, h.Circle().Radius, selection.MinCircleRadius)
	}
}

func TestCircleMove(t *testing.T) {
	h := NewCircleHandler(squareViewport(), DefaultOptions())
	feed(h, Down(250, 250), Move(260, 240))
	assert.Equal(t, pt(210, 190), h.Circle().Center)
	assert.Equal(t, 180.0, h.Circle().Radius)

	strict := NewCircleHandler(squareViewport(), Options{AllowOutsideImage: false})
	feed(strict, Down(250, 250), Move(260, 240))
	assert.Equal(t, pt(210, 190), strict.Circle().Center)
	feed(strict, Move(300, 240))
	assert.Equal(t, pt(210, 190), strict.Circle().Center, "right edge would pass the image")
}

func TestCircleMovedToOriginStaysEditable(t *testing.T) {
	h := NewCircleHandler(squareViewport(), DefaultOptions())
	feed(h, Down(200, 200), Move(0, 0), Up(0, 0))
	c := h.Circle()
	require.Equal(t, pt(0, 0), c.Center)
	assert.Equal(t, 180.0, c.Radius)
	assert.False(t, h.Selection().IsEmpty())

	feed(h, Down(10, 10), Move(200, 200), Up(200, 200))
	assert.Equal(t, pt(190, 190), h.Circle().Center)
}

func TestCircleOutsideClickIgnored(t *testing.T) {
	h := NewCircleHandler(squareViewport(), DefaultOptions())
	before := h.Circle()
	feed(h, Down(5, 5), Move(100, 100), Up(100, 100))
	assert.Equal(t, before, h.Circle())
}

func TestLassoDrawing(t *testing.T) {
	h := NewLassoHandler(squareViewport(), DefaultOptions())

	feed(h, Down(100, 100))
	l := h.Lasso()
	require.Len(t, l.Points, 1)
	assert.True(t, l.Drawing)

	feed(h, Move(105, 105), Move(120, 120), Move(140, 110), Move(200, 112))
	l = h.Lasso()
	require.Len(t, l.Points, 3, "events closer than the spacing on either axis are dropped")
	assert.Equal(t, selection.DirectionDownRight, l.Points[1].Direction)
	assert.Equal(t, selection.DirectionUpRight, l.Points[2].Direction)

	feed(h, Up(130, 150))
	l = h.Lasso()
	require.Len(t, l.Points, 4, "pointer-up appends a final point")
	assert.False(t, l.Drawing)
	assert.Equal(t, pt(130, 150), l.Points[3].Point())
	assert.Len(t, l.ClosedPath(), 5)
}

func TestLassoTooShortIsDiscarded(t *testing.T) {
	h := NewLassoHandler(squareViewport(), DefaultOptions())
	feed(h, Down(100, 100), Move(102, 101), Up(102, 101))
	assert.True(t, h.Selection().IsEmpty())
	assert.False(t, h.Lasso().Drawing)
}

func TestLassoAutoClose(t *testing.T) {
	h := NewLassoHandler(squareViewport(), DefaultOptions())
	feed(h, Down(100, 100))
	for i := 1; i < selection.LassoCloseMinPoints; i++ {
		v := 100 + 20*float64(i)
		feed(h, Move(v, v))
	}
	require.Len(t, h.Lasso().Points, selection.LassoCloseMinPoints)

	feed(h, Move(150, 130))
	l := h.Lasso()
	last, _ := l.Last()
	assert.True(t, last.IsLast)

	feed(h, Move(300, 300), Up(0, 0))
	l = h.Lasso()
	assert.Len(t, l.Points, selection.LassoCloseMinPoints+1, "nothing is added after the closing point")
	assert.False(t, l.Drawing)
}

func TestLassoMoveAndCancel(t *testing.T) {
	h := NewLassoHandler(squareViewport(), DefaultOptions())
	feed(h, Down(100, 100), Move(120, 120), Move(140, 140), Up(160, 160))
	require.Len(t, h.Lasso().Points, 4)

	feed(h, Down(130, 130))
	assert.True(t, h.Lasso().Moving)
	feed(h, Move(135, 125))
	l := h.Lasso()
	assert.Equal(t, pt(105, 95), l.Points[0].Point())
	assert.Equal(t, pt(165, 155), l.Points[3].Point())

	h.HandleEvent(Event{Kind: EventCancel})
	assert.False(t, h.Lasso().Moving)
	assert.Len(t, h.Lasso().Points, 4)

	// Cancelling a new drawing discards it.
	feed(h, Down(300, 20), Move(320, 40))
	require.True(t, h.Lasso().Drawing)
	h.HandleEvent(Event{Kind: EventCancel, X: 320, Y: 40})
	assert.True(t, h.Selection().IsEmpty())
}

func TestLassoStrictViewport(t *testing.T) {
	h := NewLassoHandler(squareViewport(), Options{AllowOutsideImage: false})
	feed(h, Down(500, 500))
	assert.True(t, h.Selection().IsEmpty(), "drawing cannot start outside the image")

	feed(h, Down(100, 100), Move(120, 120), Move(420, 140), Up(130, 150))
	assert.Len(t, h.Lasso().Points, 3)
}

func TestSnapshotsAreImmutable(t *testing.T) {
	h := NewLassoHandler(squareViewport(), DefaultOptions())
	var seen []selection.State
	h.OnChange(func(s selection.State) { seen = append(seen, s) })

	feed(h, Down(100, 100), Move(120, 120))
	first := h.Lasso()
	require.Len(t, first.Points, 2)

	feed(h, Move(140, 140), Up(160, 160), Down(130, 130), Move(150, 150))
	assert.Len(t, first.Points, 2)
	assert.Equal(t, pt(120, 120), first.Points[1].Point())
	assert.True(t, first.Drawing)

	require.NotEmpty(t, seen)
	assert.Equal(t, h.Selection(), seen[len(seen)-1])
}

func TestFactory(t *testing.T) {
	p := Params{Viewport: sampleViewport(), Canvas: geometry.NewSize(340, 500), Options: DefaultOptions()}

	assert.IsType(t, &RectangleHandler{}, New(ToolRectangle, p))
	assert.IsType(t, &CircleHandler{}, New(ToolCircle, p))
	assert.IsType(t, &LassoHandler{}, New(ToolLasso, p))
	assert.IsType(t, &MagneticLassoHandler{}, New(ToolMagneticLasso, p))
	assert.IsType(t, &EmptyHandler{}, New(ToolNone, p))
	assert.IsType(t, &EmptyHandler{}, New(Tool(99), p))

	assert.False(t, New(ToolRectangle, p).Selection().IsEmpty())
	assert.False(t, New(ToolCircle, p).Selection().IsEmpty())
	assert.True(t, New(ToolLasso, p).Selection().IsEmpty())
}
