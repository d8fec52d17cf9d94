package gesture

import (
	"math"
)

// DefaultSize is the width and height of an element that never stored one.
const DefaultSize = 180.0

// Transform is the placement of one element on its canvas. Rotation is in
// degrees.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Channel is one continuous gesture. Several can be active at once.
type Channel uint8

const (
	Pan Channel = 1 << iota
	Pinch
	Rotate
	Resize
)

// Commit names which part of the transform a completed gesture changed.
type Commit struct {
	Channel   Channel
	Transform Transform
}

// Resizing is how an element reacts to the resize handle.
type Resizing int

const (
	NotResizable Resizing = iota
	// Width and height scale together, minimum width 50
	KeepAspect
	// Only width changes, minimum width 100
	WidthOnly
)

func (r Resizing) minWidth() float64 {
	if r == KeepAspect {
		return 50
	}
	return 100
}

// Affordances are the controls shown while an element is selected.
type Affordances struct {
	Delete    bool `json:"delete"`
	ImageMenu bool `json:"imageMenu"`
	Resize    bool `json:"resize"`
}

type Options struct {
	Resizing  Resizing
	ImageMenu bool
	// Tappable elements run OnTap when tapped outside selection
	Tappable bool

	OnCommit   func(Commit)
	OnTap      func()
	OnSelect   func(Affordances)
	OnDeselect func()
}

// touchClaim records which member of the exclusive long-press/tap/pan
// group owns the current touch.
type touchClaim int

const (
	claimNone touchClaim = iota
	claimPending
	claimLongPress
	claimTap
	claimPan
)

// Binding turns gesture events for one element into live feedback and
// committed transforms. Every completed gesture commits exactly once;
// cancelled gestures never commit. Bindings are not safe for concurrent use;
// each session drives its own.
type Binding struct {
	opts Options

	committed Transform
	live      Transform
	active    Channel
	selected  bool
	claim     touchClaim

	panOrigin    Transform
	scaleOrigin  float64
	angleOrigin  float64
	resizeOrigin Transform
}

func NewBinding(initial Transform, opts Options) *Binding {
	initial = normalize(initial)
	return &Binding{opts: opts, committed: initial, live: initial}
}

func normalize(t Transform) Transform {
	if t.Scale == 0 || math.IsNaN(t.Scale) {
		t.Scale = 1
	}
	if t.Width <= 0 {
		t.Width = DefaultSize
	}
	if t.Height <= 0 {
		t.Height = DefaultSize
	}
	return t
}

func (b *Binding) Committed() Transform { return b.committed }

// Live is the transform to render right now, including in-flight gestures.
func (b *Binding) Live() Transform { return b.live }

func (b *Binding) Selected() bool { return b.selected }

func (b *Binding) Active() Channel { return b.active }

// Pressed reports whether the element should render lifted.
func (b *Binding) Pressed() bool { return b.active != 0 }

// Sync replaces the committed transform after a re-fetch. It is ignored
// while a gesture is in flight so a refresh cannot yank the element from
// under the finger.
func (b *Binding) Sync(t Transform) bool {
	if b.active != 0 {
		return false
	}
	t = normalize(t)
	b.committed = t
	b.live = t
	return true
}

// TouchDown starts a new touch. The first of long-press, tap or pan to
// recognize claims it.
func (b *Binding) TouchDown() {
	b.claim = claimPending
}

func (b *Binding) tryClaim(c touchClaim) bool {
	// A gesture delivered without TouchDown is treated as its own touch
	if b.claim == claimNone || b.claim == claimPending {
		b.claim = c
		return true
	}
	return b.claim == c
}

// LongPress selects the element and reports its affordances.
func (b *Binding) LongPress() bool {
	if !b.tryClaim(claimLongPress) {
		return false
	}
	b.selected = true
	if b.opts.OnSelect != nil {
		b.opts.OnSelect(Affordances{
			Delete:    true,
			ImageMenu: b.opts.ImageMenu,
			Resize:    b.opts.Resizing != NotResizable,
		})
	}
	return true
}

// Tap leaves selection if selected, otherwise runs the element's tap
// action.
func (b *Binding) Tap() bool {
	if !b.tryClaim(claimTap) {
		return false
	}
	if b.selected {
		b.Deselect()
		return true
	}
	if b.opts.Tappable && b.opts.OnTap != nil {
		b.opts.OnTap()
	}
	return true
}

// Deselect clears selection, e.g. on a tap on the empty canvas.
func (b *Binding) Deselect() {
	if !b.selected {
		return
	}
	b.selected = false
	if b.opts.OnDeselect != nil {
		b.opts.OnDeselect()
	}
}

// TouchUp ends the touch. Gestures still active are left to their own End
// or Cancel events.
func (b *Binding) TouchUp() {
	b.claim = claimNone
}

func (b *Binding) PanStart() bool {
	if b.active&Pan != 0 || !b.tryClaim(claimPan) {
		return false
	}
	b.Deselect()
	b.active |= Pan
	b.panOrigin = b.committed
	return true
}

// PanUpdate applies the cumulative translation since PanStart.
func (b *Binding) PanUpdate(dx, dy float64) {
	if b.active&Pan == 0 {
		return
	}
	b.live.X = b.panOrigin.X + dx
	b.live.Y = b.panOrigin.Y + dy
}

func (b *Binding) PanEnd() {
	if b.active&Pan == 0 {
		return
	}
	b.committed.X = b.live.X
	b.committed.Y = b.live.Y
	b.finish(Pan)
}

// PinchStart runs simultaneously with pan and rotate; it is not part of the
// exclusive group.
func (b *Binding) PinchStart() bool {
	if b.active&Pinch != 0 {
		return false
	}
	b.active |= Pinch
	b.scaleOrigin = b.committed.Scale
	return true
}

// PinchUpdate applies the cumulative scale factor since PinchStart.
func (b *Binding) PinchUpdate(factor float64) {
	if b.active&Pinch == 0 || factor <= 0 || math.IsNaN(factor) {
		return
	}
	b.live.Scale = b.scaleOrigin * factor
}

func (b *Binding) PinchEnd() {
	if b.active&Pinch == 0 {
		return
	}
	b.committed.Scale = b.live.Scale
	b.finish(Pinch)
}

func (b *Binding) RotateStart() bool {
	if b.active&Rotate != 0 {
		return false
	}
	b.active |= Rotate
	b.angleOrigin = b.committed.Rotation
	return true
}

// RotateUpdate applies the cumulative rotation since RotateStart, in
// radians.
func (b *Binding) RotateUpdate(radians float64) {
	if b.active&Rotate == 0 || math.IsNaN(radians) {
		return
	}
	b.live.Rotation = b.angleOrigin + radians*180/math.Pi
}

func (b *Binding) RotateEnd() {
	if b.active&Rotate == 0 {
		return
	}
	b.committed.Rotation = b.live.Rotation
	b.finish(Rotate)
}

// ResizeStart only works on a selected, resizable element.
func (b *Binding) ResizeStart() bool {
	if !b.selected || b.opts.Resizing == NotResizable || b.active&Resize != 0 {
		return false
	}
	b.active |= Resize
	b.resizeOrigin = b.committed
	return true
}

// ResizeUpdate applies the cumulative horizontal drag of the handle.
func (b *Binding) ResizeUpdate(dx float64) {
	if b.active&Resize == 0 || math.IsNaN(dx) {
		return
	}
	origin := b.resizeOrigin
	width := math.Max(b.opts.Resizing.minWidth(), origin.Width+dx)
	b.live.Width = width
	if b.opts.Resizing == KeepAspect {
		ratio := origin.Width / origin.Height
		b.live.Height = width / ratio
	}
}

func (b *Binding) ResizeEnd() {
	if b.active&Resize == 0 {
		return
	}
	b.committed.Width = b.live.Width
	b.committed.Height = b.live.Height
	b.finish(Resize)
}

func (b *Binding) finish(c Channel) {
	b.active &^= c
	if b.opts.OnCommit != nil {
		b.opts.OnCommit(Commit{Channel: c, Transform: b.committed})
	}
}

// Cancel abandons every in-flight gesture. The element snaps back to its
// committed transform and nothing is committed.
func (b *Binding) Cancel() {
	b.active = 0
	b.claim = claimNone
	b.live = b.committed
}
