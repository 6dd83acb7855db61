//go:build darwin

package eventtap

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation -framework AppKit -framework Foundation

#include "tap_darwin.h"
*/
import "C"

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"keyhook/internal/permission"
)

// taps maps the id passed as the tap's refcon to its callback. A callback
// racing a release finds no entry and passes the event through.
var (
	taps   sync.Map // uintptr -> Callback
	nextID atomic.Uintptr
)

//export keyhookTapCallback
func keyhookTapCallback(proxy C.CGEventTapProxy, t C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	v, ok := taps.Load(uintptr(refcon))
	if !ok {
		return event
	}
	out := v.(Callback)(EventType(t), EventFromRef(uintptr(event)))
	return C.CGEventRef(out.Ref())
}

// darwinPlatform implements Platform with CoreGraphics event taps.
type darwinPlatform struct {
	probe permission.Probe
}

// NewPlatform returns the CGEventTap platform. probe defaults to
// permission.System.
func NewPlatform(probe permission.Probe) Platform {
	if probe == nil {
		probe = permission.System
	}
	return &darwinPlatform{probe: probe}
}

func (p *darwinPlatform) Trusted() bool {
	return p.probe.Trusted()
}

func (p *darwinPlatform) CreateTap(types []EventType, cb Callback) (Tap, error) {
	var mask C.CGEventMask
	for _, t := range types {
		mask |= C.CGEventMask(1) << C.CGEventMask(t)
	}

	id := nextID.Add(1)
	taps.Store(id, cb)

	ref := C.khCreateTap(mask, C.uintptr_t(id))
	if ref == 0 {
		taps.Delete(id)
		return nil, fmt.Errorf("%w: CGEventTapCreate returned NULL", ErrTapCreate)
	}
	return &darwinTap{id: id, ref: ref}, nil
}

func (p *darwinPlatform) MainRunLoop() RunLoop {
	return &darwinRunLoop{ref: C.khMainRunLoop()}
}

func (p *darwinPlatform) CurrentRunLoop() RunLoop {
	rl := &darwinRunLoop{ref: C.khCopyCurrentRunLoop()}
	runtime.SetFinalizer(rl, func(rl *darwinRunLoop) {
		C.khRelease(C.CFTypeRef(rl.ref))
	})
	return rl
}

func (p *darwinPlatform) TranslateKeyEvent(ev Event) (*KeyEvent, error) {
	var info C.khKeyInfo
	if C.khReadKeyInfo(C.CGEventRef(ev.Ref()), &info) == 0 {
		return nil, ErrTranslate
	}
	flags := uint64(info.flags)
	t := KeyUp
	if C.CGEventGetType(C.CGEventRef(ev.Ref())) == C.kCGEventKeyDown {
		t = KeyDown
	}
	return &KeyEvent{
		Type:       t,
		KeyCode:    uint16(info.keyCode),
		Modifiers:  ModifiersFromFlags(flags),
		Flags:      flags,
		Repeat:     info.repeat != 0,
		Characters: C.GoString(&info.chars[0]),
		Timestamp:  time.Now(),
	}, nil
}

func (p *darwinPlatform) TranslateSystemDefinedEvent(ev Event) (*SystemDefinedEvent, error) {
	var info C.khSystemInfo
	if C.khReadSystemInfo(C.CGEventRef(ev.Ref()), &info) == 0 {
		return nil, ErrTranslate
	}
	return NewSystemDefinedEvent(
		int16(info.subtype),
		int64(info.data1),
		int64(info.data2),
		uint64(info.flags),
		time.Now(),
	), nil
}

func (p *darwinPlatform) PostToProcess(pid int, ev Event) error {
	if C.khPostToPid(C.pid_t(pid), C.CGEventRef(ev.Ref())) == 0 {
		return ErrRepost
	}
	return nil
}

type darwinTap struct {
	id  uintptr
	ref C.CFMachPortRef
}

func (t *darwinTap) Enable(on bool) {
	C.khEnableTap(t.ref, C.bool(on))
}

func (t *darwinTap) CreateSource() (Source, error) {
	src := C.khCreateSource(t.ref)
	if src == 0 {
		return nil, ErrSourceCreate
	}
	return &darwinSource{ref: src}, nil
}

func (t *darwinTap) Invalidate() {
	C.khInvalidateTap(t.ref)
	taps.Delete(t.id)
}

func (t *darwinTap) Release() {
	taps.Delete(t.id)
	C.khRelease(C.CFTypeRef(t.ref))
}

type darwinSource struct {
	ref C.CFRunLoopSourceRef
}

func (s *darwinSource) Release() {
	C.khRelease(C.CFTypeRef(s.ref))
}

type darwinRunLoop struct {
	ref C.CFRunLoopRef
}

func (l *darwinRunLoop) AddSource(src Source) {
	C.khAddSource(l.ref, src.(*darwinSource).ref)
}

func (l *darwinRunLoop) RemoveSource(src Source) {
	C.khRemoveSource(l.ref, src.(*darwinSource).ref)
}

// RunFor runs the calling thread's run loop, which must be l.
func (l *darwinRunLoop) RunFor(d time.Duration) {
	C.khRunFor(C.double(d.Seconds()))
}

func (l *darwinRunLoop) Wake() {
	C.khWake(l.ref)
}

// newNativeKeyEvent creates a keyboard CGEvent. The caller releases it.
func newNativeKeyEvent(code uint16, down bool) (Event, func()) {
	ref := C.khNewKeyEvent(C.uint16_t(code), C.bool(down))
	return EventFromRef(uintptr(ref)), func() { C.khRelease(C.CFTypeRef(ref)) }
}

// newNativeMediaKeyEvent creates an auxiliary-control system-defined
// CGEvent for key. The caller releases it.
func newNativeMediaKeyEvent(key MediaKey, down bool) (Event, func()) {
	ref := C.khNewAuxControlEvent(C.int64_t(EncodeAuxControl(key, down, false)))
	return EventFromRef(uintptr(ref)), func() { C.khRelease(C.CFTypeRef(ref)) }
}

// RunMain services the main run loop until ctx is done. It must be called
// from the main goroutine of a program that locked it to the main thread
// in an init function. Hosts with their own UI loop do not need it.
func RunMain(ctx context.Context) error {
	if C.khIsMainThread() == 0 {
		return ErrNotMainThread
	}
	loop := C.khMainRunLoop()
	stop := context.AfterFunc(ctx, func() { C.khWake(loop) })
	defer stop()

	for ctx.Err() == nil {
		C.khRunFor(C.double(0.5))
	}
	return nil
}
