package gesture

import (
	"errors"
	"fmt"
)

// EventKind names a discrete event as it arrives over the wire.
type EventKind string

const (
	EventTouchDown    EventKind = "touch_down"
	EventTouchUp      EventKind = "touch_up"
	EventLongPress    EventKind = "long_press"
	EventTap          EventKind = "tap"
	EventPanStart     EventKind = "pan_start"
	EventPanUpdate    EventKind = "pan_update"
	EventPanEnd       EventKind = "pan_end"
	EventPinchStart   EventKind = "pinch_start"
	EventPinchUpdate  EventKind = "pinch_update"
	EventPinchEnd     EventKind = "pinch_end"
	EventRotateStart  EventKind = "rotate_start"
	EventRotateUpdate EventKind = "rotate_update"
	EventRotateEnd    EventKind = "rotate_end"
	EventResizeStart  EventKind = "resize_start"
	EventResizeUpdate EventKind = "resize_update"
	EventResizeEnd    EventKind = "resize_end"
	EventCancel       EventKind = "cancel"
	EventDeselect     EventKind = "deselect"
)

// Event carries cumulative values: DX/DY for pan and resize, Value for the
// pinch factor or rotation in radians.
type Event struct {
	Kind  EventKind `json:"kind"`
	DX    float64   `json:"dx,omitempty"`
	DY    float64   `json:"dy,omitempty"`
	Value float64   `json:"value,omitempty"`
}

var ErrUnknownEvent = errors.New("unknown gesture event")

// Handle dispatches one event to the binding.
func (b *Binding) Handle(ev Event) error {
	switch ev.Kind {
	case EventTouchDown:
		b.TouchDown()
	case EventTouchUp:
		b.TouchUp()
	case EventLongPress:
		b.LongPress()
	case EventTap:
		b.Tap()
	case EventPanStart:
		b.PanStart()
	case EventPanUpdate:
		b.PanUpdate(ev.DX, ev.DY)
	case EventPanEnd:
		b.PanEnd()
	case EventPinchStart:
		b.PinchStart()
	case EventPinchUpdate:
		b.PinchUpdate(ev.Value)
	case EventPinchEnd:
		b.PinchEnd()
	case EventRotateStart:
		b.RotateStart()
	case EventRotateUpdate:
		b.RotateUpdate(ev.Value)
	case EventRotateEnd:
		b.RotateEnd()
	case EventResizeStart:
		b.ResizeStart()
	case EventResizeUpdate:
		b.ResizeUpdate(ev.DX)
	case EventResizeEnd:
		b.ResizeEnd()
	case EventCancel:
		b.Cancel()
	case EventDeselect:
		b.Deselect()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return nil
}
