package eventtap

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakePlatform records every call the Manager makes across the OS boundary.
type fakePlatform struct {
	trusted    atomic.Bool
	createErr  error
	sourceErr  error
	postErr    error
	keyErr     error
	systemErr  error
	keyPanic   bool
	mainLoop   *recordingLoop
	keyEvent   KeyEvent
	sysEvent   SystemDefinedEvent

	mu      sync.Mutex
	ops     []string
	taps    []*fakeTap
	loops   []*recordingLoop
	posts   []post
	creates int
}

type post struct {
	pid int
	ev  Event
}

func newFakePlatform(trusted bool) *fakePlatform {
	p := &fakePlatform{}
	p.trusted.Store(trusted)
	p.mainLoop = &recordingLoop{GoRunLoop: NewGoRunLoop(), p: p, name: "main"}
	p.keyEvent = KeyEvent{Type: KeyDown, KeyCode: 0x00}
	p.sysEvent = *NewSystemDefinedEvent(AuxControlSubtype, EncodeAuxControl(MediaPlay, true, false), -1, 0, time.Now())
	return p
}

func (p *fakePlatform) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
}

func (p *fakePlatform) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePlatform) ResetOps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}

func (p *fakePlatform) Trusted() bool { return p.trusted.Load() }

func (p *fakePlatform) CreateTap(types []EventType, cb Callback) (Tap, error) {
	if !p.trusted.Load() {
		return nil, ErrTapCreate
	}
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	t := &fakeTap{p: p, id: p.creates, types: types, cb: cb}
	p.taps = append(p.taps, t)
	p.ops = append(p.ops, "create")
	return t, nil
}

func (p *fakePlatform) MainRunLoop() RunLoop { return p.mainLoop }

func (p *fakePlatform) CurrentRunLoop() RunLoop {
	l := &recordingLoop{GoRunLoop: NewGoRunLoop(), p: p, name: "thread"}
	p.mu.Lock()
	p.loops = append(p.loops, l)
	p.mu.Unlock()
	return l
}

func (p *fakePlatform) TranslateKeyEvent(Event) (*KeyEvent, error) {
	if p.keyPanic {
		panic("bad key event")
	}
	if p.keyErr != nil {
		return nil, p.keyErr
	}
	kev := p.keyEvent
	return &kev, nil
}

func (p *fakePlatform) TranslateSystemDefinedEvent(Event) (*SystemDefinedEvent, error) {
	if p.systemErr != nil {
		return nil, p.systemErr
	}
	sev := p.sysEvent
	return &sev, nil
}

func (p *fakePlatform) PostToProcess(pid int, ev Event) error {
	if p.postErr != nil {
		return p.postErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, post{pid: pid, ev: ev})
	return nil
}

func (p *fakePlatform) Posts() []post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]post(nil), p.posts...)
}

func (p *fakePlatform) Creates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates
}

func (p *fakePlatform) Tap(i int) *fakeTap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taps[i]
}

func (p *fakePlatform) ThreadLoops() []*recordingLoop {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*recordingLoop(nil), p.loops...)
}

type fakeTap struct {
	p     *fakePlatform
	id    int
	types []EventType
	cb    Callback

	enables     atomic.Int32
	disables    atomic.Int32
	invalidated atomic.Bool
	released    atomic.Bool
	source      *fakeSource
}

func (t *fakeTap) Enable(on bool) {
	if on {
		t.enables.Add(1)
		t.p.record("enable")
		return
	}
	t.disables.Add(1)
	t.p.record("disable")
}

func (t *fakeTap) CreateSource() (Source, error) {
	if t.p.sourceErr != nil {
		return nil, t.p.sourceErr
	}
	t.source = &fakeSource{p: t.p, tap: t}
	return t.source, nil
}

func (t *fakeTap) Invalidate() {
	t.invalidated.Store(true)
	t.p.record("invalidate")
}

func (t *fakeTap) Release() {
	t.released.Store(true)
	t.p.record("release_tap")
}

type fakeSource struct {
	p        *fakePlatform
	tap      *fakeTap
	released atomic.Bool
}

func (s *fakeSource) Release() {
	s.released.Store(true)
	s.p.record("release_source")
}

// recordingLoop is a GoRunLoop that logs attach and detach operations.
type recordingLoop struct {
	*GoRunLoop
	p    *fakePlatform
	name string
}

func (l *recordingLoop) AddSource(src Source) {
	l.GoRunLoop.AddSource(src)
	l.p.record("attach_" + l.name)
}

func (l *recordingLoop) RemoveSource(src Source) {
	l.GoRunLoop.RemoveSource(src)
	l.p.record("detach_" + l.name)
}

// countingDelegate counts calls and answers with fixed decisions.
type countingDelegate struct {
	captureKeys   bool
	captureSystem bool
	keyCalls      atomic.Int32
	systemCalls   atomic.Int32
}

func (d *countingDelegate) ShouldCaptureKeyEvent(*KeyEvent) bool {
	d.keyCalls.Add(1)
	return d.captureKeys
}

func (d *countingDelegate) ShouldCaptureSystemDefinedEvent(*SystemDefinedEvent) bool {
	d.systemCalls.Add(1)
	return d.captureSystem
}

func (d *countingDelegate) Calls() int {
	return int(d.keyCalls.Load() + d.systemCalls.Load())
}

var errFake = errors.New("fake failure")

func fixedPID(pid int) func() (int, error) {
	return func() (int, error) { return pid, nil }
}
