// Package eventtap intercepts system-wide keyboard and media-key events and
// lets a host decide, per event, whether to swallow the event and re-deliver
// it to its own process.
//
// The Manager owns the OS interception hook (a CGEventTap on macOS). It
// attaches the hook either to the main run loop or to a dedicated OS thread,
// and asks a Delegate for a capture decision on every key-down, key-up and
// system-defined (media key) event.
//
// Every failure inside the event path fails open: an event that cannot be
// translated, re-posted, or decided on is passed through unchanged.
//
// Platform support:
//   - macOS: CGEventTap (requires Accessibility permission)
//   - others: tap creation always fails; the Manager stays idle
package eventtap

import (
	"errors"
	"fmt"
	"time"
)

// EventType identifies the kind of event delivered to the tap callback.
// Values mirror CoreGraphics' CGEventType.
type EventType uint32

const (
	KeyDown       EventType = 10
	KeyUp         EventType = 11
	SystemDefined EventType = 14

	// TapDisabledByTimeout is the pseudo-event the OS emits after it
	// disabled the tap because the callback held the event stream too long.
	TapDisabledByTimeout EventType = 0xFFFFFFFE
	// TapDisabledByUserInput is emitted when the tap is disabled by user
	// input, e.g. while secure event input is active.
	TapDisabledByUserInput EventType = 0xFFFFFFFF
)

// String returns the name of the event type.
func (t EventType) String() string {
	switch t {
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	case SystemDefined:
		return "system_defined"
	case TapDisabledByTimeout:
		return "tap_disabled_by_timeout"
	case TapDisabledByUserInput:
		return "tap_disabled_by_user_input"
	default:
		return fmt.Sprintf("event_type(%d)", uint32(t))
	}
}

// tapEventTypes are the only event categories the tap subscribes to.
var tapEventTypes = []EventType{KeyDown, KeyUp, SystemDefined}

// Event is an opaque reference to a native input event. The zero Event is
// the null event: returning it from the tap callback cancels delivery.
type Event struct {
	ref uintptr
}

// EventFromRef wraps a native event reference.
func EventFromRef(ref uintptr) Event {
	return Event{ref: ref}
}

// Ref returns the native event reference.
func (e Event) Ref() uintptr {
	return e.ref
}

// IsNull reports whether e is the null event.
func (e Event) IsNull() bool {
	return e.ref == 0
}

// ThreadingMode selects where the tap's event source is serviced.
type ThreadingMode int

const (
	// MainLoop attaches the source to the host's main run loop.
	MainLoop ThreadingMode = iota
	// DedicatedThread services the source on a Runner-owned OS thread.
	DedicatedThread
)

// String returns the name of the threading mode.
func (m ThreadingMode) String() string {
	switch m {
	case MainLoop:
		return "main_loop"
	case DedicatedThread:
		return "dedicated_thread"
	default:
		return "unknown"
	}
}

// Errors reported by platform implementations. None of them escape the
// Manager's public API; they are logged and counted.
var (
	// ErrTapCreate is returned when the OS refuses to create the tap,
	// almost always because Accessibility permission is missing.
	ErrTapCreate = errors.New("event tap creation failed")

	// ErrSourceCreate is returned when no run loop source could be made
	// for a tap.
	ErrSourceCreate = errors.New("run loop source creation failed")

	// ErrTranslate is returned when a native event cannot be converted.
	ErrTranslate = errors.New("event translation failed")

	// ErrProcessLookup is returned when the current process cannot be
	// identified.
	ErrProcessLookup = errors.New("process lookup failed")

	// ErrRepost is returned when an event cannot be re-posted.
	ErrRepost = errors.New("event repost failed")

	// ErrUnsupported is returned on platforms without an event tap.
	ErrUnsupported = errors.New("event taps not supported on this platform")

	// ErrNotMainThread is returned by RunMain when called off the main
	// thread.
	ErrNotMainThread = errors.New("RunMain must be called on the main thread")
)

// Callback is invoked synchronously by the OS for every tapped event.
// Returning the null Event cancels delivery.
type Callback func(t EventType, ev Event) Event

// Platform is the operating-system boundary used by the Manager.
type Platform interface {
	// Trusted reports whether the process may currently intercept events.
	Trusted() bool

	// CreateTap installs a head-inserted session tap for the given types.
	// It returns ErrTapCreate (possibly wrapped) when the OS refuses.
	CreateTap(types []EventType, cb Callback) (Tap, error)

	// MainRunLoop returns the process's main run loop.
	MainRunLoop() RunLoop

	// CurrentRunLoop returns the run loop of the calling OS thread.
	CurrentRunLoop() RunLoop

	TranslateKeyEvent(ev Event) (*KeyEvent, error)
	TranslateSystemDefinedEvent(ev Event) (*SystemDefinedEvent, error)

	// PostToProcess delivers ev directly to the process with the given pid.
	PostToProcess(pid int, ev Event) error
}

// Tap is an installed interception hook.
type Tap interface {
	Enable(on bool)
	CreateSource() (Source, error)
	Invalidate()
	Release()
}

// Source is the run loop source bound to a Tap.
type Source interface {
	Release()
}

// RunLoop is a thread-bound event-processing loop.
type RunLoop interface {
	AddSource(src Source)
	RemoveSource(src Source)

	// RunFor services the loop until d elapses or Wake is called.
	RunFor(d time.Duration)

	// Wake makes an in-progress RunFor return early.
	Wake()
}
