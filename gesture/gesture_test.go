package gesture_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/gesture"
)

type recorder struct {
	commits    []gesture.Commit
	taps       int
	selections []gesture.Affordances
	deselects  int
}

func (r *recorder) options(o gesture.Options) gesture.Options {
	o.OnCommit = func(c gesture.Commit) { r.commits = append(r.commits, c) }
	o.OnTap = func() { r.taps++ }
	o.OnSelect = func(a gesture.Affordances) { r.selections = append(r.selections, a) }
	o.OnDeselect = func() { r.deselects++ }
	return o
}

func start() gesture.Transform {
	return gesture.Transform{X: 10, Y: 20, Rotation: 5, Scale: 1, Width: 200, Height: 100}
}

func TestPan_CommitsOnceWithFullTransform(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	b.TouchDown()
	require.True(t, b.PanStart())
	for i := 1; i <= 30; i++ {
		b.PanUpdate(float64(i), float64(-i))
	}
	assert.Equal(t, 40.0, b.Live().X)
	assert.Equal(t, -10.0, b.Live().Y)
	assert.Equal(t, 10.0, b.Committed().X)
	assert.Empty(t, rec.commits)
	assert.True(t, b.Pressed())

	b.PanEnd()
	b.TouchUp()

	require.Len(t, rec.commits, 1)
	assert.Equal(t, gesture.Pan, rec.commits[0].Channel)
	want := start()
	want.X, want.Y = 40, -10
	assert.Equal(t, want, rec.commits[0].Transform)
	assert.Equal(t, want, b.Committed())
	assert.False(t, b.Pressed())
}

func TestPan_SecondDragStartsFromCommitted(t *testing.T) {
	b := gesture.NewBinding(start(), gesture.Options{})

	b.TouchDown()
	b.PanStart()
	b.PanUpdate(5, 5)
	b.PanEnd()
	b.TouchUp()

	b.TouchDown()
	b.PanStart()
	b.PanUpdate(1, 1)
	assert.Equal(t, 16.0, b.Live().X)
	assert.Equal(t, 26.0, b.Live().Y)
}

func TestCancel_SnapsBackWithoutCommit(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	b.TouchDown()
	b.PanStart()
	b.PinchStart()
	b.PanUpdate(100, 100)
	b.PinchUpdate(3)
	b.Cancel()

	assert.Empty(t, rec.commits)
	assert.Equal(t, start(), b.Live())
	assert.Equal(t, gesture.Channel(0), b.Active())

	// Ends after a cancel are ignored
	b.PanEnd()
	b.PinchEnd()
	assert.Empty(t, rec.commits)
}

func TestSimultaneous_EachChannelCommitsOnItsOwnEnd(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	b.TouchDown()
	b.PanStart()
	b.PinchStart()
	b.RotateStart()
	b.PanUpdate(10, 0)
	b.PinchUpdate(2)
	b.RotateUpdate(math.Pi / 2)

	b.PinchEnd()
	require.Len(t, rec.commits, 1)
	assert.Equal(t, gesture.Pinch, rec.commits[0].Channel)
	assert.Equal(t, 2.0, rec.commits[0].Transform.Scale)
	// Pan is still in flight, so its offset is not committed yet
	assert.Equal(t, 10.0, rec.commits[0].Transform.X)

	b.RotateEnd()
	b.PanEnd()
	require.Len(t, rec.commits, 3)
	assert.InDelta(t, 95.0, rec.commits[1].Transform.Rotation, 1e-9)
	assert.Equal(t, 20.0, rec.commits[2].Transform.X)
	assert.Equal(t, 2.0, rec.commits[2].Transform.Scale)
}

func TestCommitCardinality(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	completed := 0
	for round := 0; round < 7; round++ {
		b.TouchDown()
		b.PanStart()
		for i := 0; i < 50; i++ {
			b.PanUpdate(float64(i), 0)
		}
		if round%3 == 2 {
			b.Cancel()
		} else {
			b.PanEnd()
			completed++
		}
		b.TouchUp()

		b.PinchStart()
		for i := 1; i < 20; i++ {
			b.PinchUpdate(1 + float64(i)/10)
		}
		b.PinchEnd()
		completed++
	}

	assert.Len(t, rec.commits, completed)
}

func TestExclusiveGroup_FirstRecognizerWins(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{Tappable: true}))

	b.TouchDown()
	require.True(t, b.LongPress())
	assert.False(t, b.PanStart())
	assert.False(t, b.Tap())
	b.TouchUp()
	assert.Empty(t, rec.commits)
	assert.Equal(t, 0, rec.taps)
	assert.True(t, b.Selected())

	b.TouchDown()
	require.True(t, b.PanStart())
	assert.False(t, b.LongPress())
	assert.False(t, b.Tap())
}

func TestTap_RunsActionOrLeavesSelection(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{Tappable: true}))

	b.TouchDown()
	b.Tap()
	b.TouchUp()
	assert.Equal(t, 1, rec.taps)

	b.TouchDown()
	b.LongPress()
	b.TouchUp()

	b.TouchDown()
	b.Tap()
	b.TouchUp()
	assert.Equal(t, 1, rec.taps)
	assert.False(t, b.Selected())
	assert.Equal(t, 1, rec.deselects)
}

func TestTap_NotTappable(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	b.TouchDown()
	assert.True(t, b.Tap())
	assert.Equal(t, 0, rec.taps)
}

func TestLongPress_ReportsAffordances(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{Resizing: gesture.KeepAspect, ImageMenu: true}))

	b.TouchDown()
	b.LongPress()
	require.Len(t, rec.selections, 1)
	assert.Equal(t, gesture.Affordances{Delete: true, ImageMenu: true, Resize: true}, rec.selections[0])
}

func TestDragStartLeavesSelection(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	b.TouchDown()
	b.LongPress()
	b.TouchUp()
	require.True(t, b.Selected())

	b.TouchDown()
	b.PanStart()
	assert.False(t, b.Selected())
	assert.Equal(t, 1, rec.deselects)
}

func TestResize_KeepAspect(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{Resizing: gesture.KeepAspect}))

	assert.False(t, b.ResizeStart(), "resize needs selection")

	b.TouchDown()
	b.LongPress()
	b.TouchUp()

	require.True(t, b.ResizeStart())
	b.ResizeUpdate(100)
	assert.Equal(t, 300.0, b.Live().Width)
	assert.Equal(t, 150.0, b.Live().Height)

	b.ResizeUpdate(-500)
	assert.Equal(t, 50.0, b.Live().Width)
	assert.Equal(t, 25.0, b.Live().Height)

	b.ResizeEnd()
	require.Len(t, rec.commits, 1)
	assert.Equal(t, gesture.Resize, rec.commits[0].Channel)
	assert.Equal(t, 50.0, rec.commits[0].Transform.Width)
	assert.Equal(t, 25.0, rec.commits[0].Transform.Height)
}

func TestResize_WidthOnly(t *testing.T) {
	b := gesture.NewBinding(start(), gesture.Options{Resizing: gesture.WidthOnly})

	b.TouchDown()
	b.LongPress()
	b.TouchUp()

	b.ResizeStart()
	b.ResizeUpdate(-150)
	assert.Equal(t, 100.0, b.Live().Width)
	assert.Equal(t, 100.0, b.Live().Height)
	b.ResizeEnd()
	assert.Equal(t, 100.0, b.Committed().Width)
}

func TestResize_NotResizable(t *testing.T) {
	b := gesture.NewBinding(start(), gesture.Options{})

	b.TouchDown()
	b.LongPress()
	assert.False(t, b.ResizeStart())
}

func TestDefaults(t *testing.T) {
	b := gesture.NewBinding(gesture.Transform{X: 1}, gesture.Options{})
	assert.Equal(t, 1.0, b.Committed().Scale)
	assert.Equal(t, gesture.DefaultSize, b.Committed().Width)
	assert.Equal(t, gesture.DefaultSize, b.Committed().Height)
}

func TestSync_IgnoredMidGesture(t *testing.T) {
	b := gesture.NewBinding(start(), gesture.Options{})

	b.TouchDown()
	b.PanStart()
	assert.False(t, b.Sync(gesture.Transform{X: 99}))
	b.PanEnd()

	assert.True(t, b.Sync(gesture.Transform{X: 99, Scale: 2}))
	assert.Equal(t, 99.0, b.Live().X)
	assert.Equal(t, 2.0, b.Committed().Scale)
}

func TestHandle_DispatchesWireEvents(t *testing.T) {
	rec := &recorder{}
	b := gesture.NewBinding(start(), rec.options(gesture.Options{}))

	for _, ev := range []gesture.Event{
		{Kind: gesture.EventTouchDown},
		{Kind: gesture.EventPanStart},
		{Kind: gesture.EventPanUpdate, DX: 3, DY: 4},
		{Kind: gesture.EventPanEnd},
		{Kind: gesture.EventTouchUp},
	} {
		require.NoError(t, b.Handle(ev))
	}

	require.Len(t, rec.commits, 1)
	assert.Equal(t, 13.0, rec.commits[0].Transform.X)
	assert.Equal(t, 24.0, rec.commits[0].Transform.Y)

	assert.ErrorIs(t, b.Handle(gesture.Event{Kind: "wiggle"}), gesture.ErrUnknownEvent)
}
