package eventtap

import "time"

// Delegate decides whether a translated event is captured. Both methods run
// inside the OS callback and must return quickly.
//
// A delegate must not call SetEnabled, SetThreadingMode,
// SetUsesDedicatedThread, ApplicationActivated or Close synchronously:
// stopping joins the thread the callback runs on and would deadlock. Make
// such calls from a new goroutine.
type Delegate interface {
	ShouldCaptureKeyEvent(ev *KeyEvent) bool
	ShouldCaptureSystemDefinedEvent(ev *SystemDefinedEvent) bool
}

// DelegateFuncs adapts a pair of functions to the Delegate interface.
// A nil function never captures.
type DelegateFuncs struct {
	KeyEvent           func(ev *KeyEvent) bool
	SystemDefinedEvent func(ev *SystemDefinedEvent) bool
}

// ShouldCaptureKeyEvent implements Delegate.
func (f DelegateFuncs) ShouldCaptureKeyEvent(ev *KeyEvent) bool {
	if f.KeyEvent == nil {
		return false
	}
	return f.KeyEvent(ev)
}

// ShouldCaptureSystemDefinedEvent implements Delegate.
func (f DelegateFuncs) ShouldCaptureSystemDefinedEvent(ev *SystemDefinedEvent) bool {
	if f.SystemDefinedEvent == nil {
		return false
	}
	return f.SystemDefinedEvent(ev)
}

// Modifiers is the set of modifier keys held during an event.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModOption
	ModCommand
	ModFunction
	ModCapsLock
)

// CoreGraphics modifier flag masks.
const (
	flagMaskAlphaShift  = 0x00010000
	flagMaskShift       = 0x00020000
	flagMaskControl     = 0x00040000
	flagMaskAlternate   = 0x00080000
	flagMaskCommand     = 0x00100000
	flagMaskSecondaryFn = 0x00800000
)

// ModifiersFromFlags converts CGEventFlags to Modifiers.
func ModifiersFromFlags(flags uint64) Modifiers {
	var m Modifiers
	if flags&flagMaskShift != 0 {
		m |= ModShift
	}
	if flags&flagMaskControl != 0 {
		m |= ModControl
	}
	if flags&flagMaskAlternate != 0 {
		m |= ModOption
	}
	if flags&flagMaskCommand != 0 {
		m |= ModCommand
	}
	if flags&flagMaskSecondaryFn != 0 {
		m |= ModFunction
	}
	if flags&flagMaskAlphaShift != 0 {
		m |= ModCapsLock
	}
	return m
}

// Has reports whether all modifiers in o are set in m.
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}

// String renders the modifiers as "cmd+shift" style text.
func (m Modifiers) String() string {
	var s string
	add := func(bit Modifiers, name string) {
		if m&bit == 0 {
			return
		}
		if s != "" {
			s += "+"
		}
		s += name
	}
	add(ModControl, "ctrl")
	add(ModOption, "opt")
	add(ModShift, "shift")
	add(ModCommand, "cmd")
	add(ModFunction, "fn")
	add(ModCapsLock, "capslock")
	return s
}

// KeyEvent is the translated form of a key-down or key-up event.
type KeyEvent struct {
	Type       EventType
	KeyCode    uint16
	Modifiers  Modifiers
	Flags      uint64
	Repeat     bool
	Characters string
	Timestamp  time.Time
}

// SystemDefinedEvent is the translated form of a vendor-defined event.
// Media, volume and brightness keys arrive with Subtype AuxControlSubtype.
type SystemDefinedEvent struct {
	Subtype   int16
	Data1     int64
	Data2     int64
	Modifiers Modifiers
	Timestamp time.Time

	// Decoded auxiliary control fields; valid when IsAuxControl is true.
	Key    MediaKey
	Down   bool
	Repeat bool
}

// IsAuxControl reports whether the event is a media/volume/brightness key.
func (e *SystemDefinedEvent) IsAuxControl() bool {
	return e.Subtype == AuxControlSubtype
}

// NewSystemDefinedEvent builds a SystemDefinedEvent and decodes auxiliary
// control buttons.
func NewSystemDefinedEvent(subtype int16, data1, data2 int64, flags uint64, ts time.Time) *SystemDefinedEvent {
	ev := &SystemDefinedEvent{
		Subtype:   subtype,
		Data1:     data1,
		Data2:     data2,
		Modifiers: ModifiersFromFlags(flags),
		Timestamp: ts,
	}
	if subtype == AuxControlSubtype {
		ev.Key, ev.Down, ev.Repeat = DecodeAuxControl(data1)
	}
	return ev
}
