// Package platform defines the Platform capability the core consumes
// but never implements (spec.md §1, §6): windowing, input device
// enumeration, and platform event pumping are explicitly out of scope.
// The shape here generalizes the teacher's wsi.Window lifecycle
// (_examples/gviegas-neo3/wsi/wsi.go) into a capability interface.
package platform

import (
	"context"
	"time"
)

// EventKind enumerates the input/window lifecycle events a Platform
// produces.
type EventKind int

const (
	KeyEvent EventKind = iota
	MouseButtonEvent
	MouseMotionEvent
	MouseWheelEvent
	WindowCloseEvent
	WindowResizeEvent
	WindowFocusEvent
)

// Event is one platform-produced input or window lifecycle event. Data
// holds one of the KindEvent structs below, matching Kind; callers
// type-assert it, matching spec.md §6's "consumed only as a Platform
// capability" boundary while still giving the input subsystem a
// concrete payload to map from.
type Event struct {
	Kind EventKind
	Data any
}

// Key enumerates keyboard keys. Generalized from the teacher's
// wsi.Key (_examples/gviegas-neo3/wsi/wsi.go), trimmed to the subset an
// input mapper needs rather than every physical key the teacher's WSI
// backends enumerate.
type Key int

const (
	KeyUnknown Key = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyShift
	KeyCtrl
	KeyAlt
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyA
	KeyD
	KeyS
	KeyW
)

// Button enumerates pointer buttons, generalized from wsi.Button.
type Button int

const (
	BtnUnknown Button = iota
	BtnLeft
	BtnRight
	BtnMiddle
)

// Modifier is a bitmask of held modifier keys, generalized from
// wsi.Modifier.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// KeyEventData is Event.Data for KeyEvent.
type KeyEventData struct {
	Key      Key
	Pressed  bool
	Modifier Modifier
}

// MouseButtonEventData is Event.Data for MouseButtonEvent.
type MouseButtonEventData struct {
	Button  Button
	Pressed bool
	X, Y    float64
}

// MouseMotionEventData is Event.Data for MouseMotionEvent.
type MouseMotionEventData struct {
	X, Y   float64
	DX, DY float64
}

// MouseWheelEventData is Event.Data for MouseWheelEvent.
type MouseWheelEventData struct {
	DX, DY float64
}

// WindowResizeEventData is Event.Data for WindowResizeEvent.
type WindowResizeEventData struct {
	Width, Height int
}

// ThreadPool is the capability for running CPU-heavy work off the
// coordinator thread (spec.md §5 "a separate thread pool executes
// CPU-heavy work... via an explicit Run(fn, cancel_token) call that
// returns an awaitable").
type ThreadPool interface {
	// Run executes fn on the pool and returns its result once
	// complete, or ctx's error if ctx is done first.
	Run(ctx context.Context, fn func() (any, error)) (any, error)
}

// Platform is the capability interface the coordinator and import
// pipeline consume (spec.md §6).
type Platform interface {
	// PumpEvents drains currently queued events without blocking.
	PumpEvents() []Event
	// Now returns the platform's monotonic clock.
	Now() time.Time
	// ThreadPool returns the platform's shared worker pool.
	ThreadPool() ThreadPool
	// LastWindowClosed reports whether the last open window has been
	// closed, one of the Frame Coordinator's loop termination signals
	// (spec.md §4.2).
	LastWindowClosed() bool
}
