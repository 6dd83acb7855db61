package eventtap

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keyhook/internal/metrics"
)

// DefaultRunnerSlice is how long a dedicated-thread run loop slice lasts
// before the runner re-checks for cancellation.
const DefaultRunnerSlice = 250 * time.Millisecond

// Manager owns the event tap and decides, per event, whether it is
// captured. Lifecycle calls are serialized internally; event callbacks may
// arrive concurrently with them. Lifecycle calls made from inside a
// callback must be asynchronous, see Delegate.
type Manager struct {
	platform    Platform
	log         *slog.Logger
	metrics     *metrics.TapMetrics
	lookupPID   func() (int, error)
	runnerSlice time.Duration

	// lifecycle serializes SetEnabled, SetThreadingMode,
	// ApplicationActivated and Close. It is held across the stop sequence
	// including the runner join, so the event path must never take it.
	lifecycle sync.Mutex
	mode      ThreadingMode

	enabled  atomic.Bool
	delegate atomic.Pointer[delegateRef]

	// mu guards the resources the event path reads. It is never held
	// while joining the runner.
	mu     sync.RWMutex
	tap    Tap
	source Source
	attach attachment

	stats stats
}

type delegateRef struct {
	d Delegate
}

// Option configures a Manager.
type Option func(*Manager)

// WithDelegate sets the initial capture delegate.
func WithDelegate(d Delegate) Option {
	return func(m *Manager) { m.SetDelegate(d) }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics records tap activity into the given metrics.
func WithMetrics(tm *metrics.TapMetrics) Option {
	return func(m *Manager) { m.metrics = tm }
}

// WithThreadingMode sets the initial threading mode.
func WithThreadingMode(mode ThreadingMode) Option {
	return func(m *Manager) { m.mode = mode }
}

// WithRunnerSlice sets the dedicated-thread run loop slice.
func WithRunnerSlice(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.runnerSlice = d
		}
	}
}

// WithProcessLookup replaces the lookup of the pid captured events are
// re-posted to.
func WithProcessLookup(fn func() (int, error)) Option {
	return func(m *Manager) { m.lookupPID = fn }
}

// New creates a Manager. It starts disabled and in MainLoop mode unless
// options say otherwise; nothing is installed until SetEnabled(true).
func New(p Platform, opts ...Option) *Manager {
	m := &Manager{
		platform:    p,
		log:         slog.Default(),
		lookupPID:   currentProcess,
		runnerSlice: DefaultRunnerSlice,
		mode:        MainLoop,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("component", "eventtap"))
	m.metrics.SetIntent(false, m.mode == DedicatedThread)
	return m
}

// SetEnabled sets the host's intent to tap. Enabling tries to start the
// tap; a missing permission leaves IsTapping false without error.
// Disabling stops the tap unconditionally.
func (m *Manager) SetEnabled(on bool) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	was := m.enabled.Swap(on)
	m.metrics.SetIntent(on, m.mode == DedicatedThread)
	switch {
	case on && !was:
		m.start()
	case !on:
		m.stop()
	}
}

// Enabled reports the host's intent to tap.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// SetThreadingMode changes where the tap is serviced. While tapping this
// performs a full stop and restart under the new mode.
func (m *Manager) SetThreadingMode(mode ThreadingMode) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if mode == m.mode {
		return
	}

	tapping := m.IsTapping()
	if tapping {
		m.stop()
	}
	m.log.Info("threading mode changed", "from", m.mode, "to", mode)
	m.mode = mode
	m.metrics.SetIntent(m.enabled.Load(), mode == DedicatedThread)
	if tapping {
		m.start()
	}
}

// ThreadingMode returns the current threading mode.
func (m *Manager) ThreadingMode() ThreadingMode {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.mode
}

// SetUsesDedicatedThread is the boolean form of SetThreadingMode.
func (m *Manager) SetUsesDedicatedThread(on bool) {
	if on {
		m.SetThreadingMode(DedicatedThread)
		return
	}
	m.SetThreadingMode(MainLoop)
}

// UsesDedicatedThread reports whether the DedicatedThread mode is selected.
func (m *Manager) UsesDedicatedThread() bool {
	return m.ThreadingMode() == DedicatedThread
}

// IsTapping reports whether the tap is installed.
func (m *Manager) IsTapping() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tap != nil
}

// CanTapEvents reports whether the OS currently permits event taps. The
// answer is recomputed on every call since trust can change at runtime.
func (m *Manager) CanTapEvents() bool {
	return m.platform.Trusted()
}

// ApplicationActivated must be called whenever the host process becomes
// active. It retries a start that previously failed for lack of
// permission.
func (m *Manager) ApplicationActivated() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.metrics.RecordActivation()
	if m.IsTapping() || !m.enabled.Load() {
		return
	}
	if !m.CanTapEvents() {
		m.log.Debug("activation retry skipped, not trusted")
		return
	}
	m.log.Info("retrying event tap after activation")
	m.start()
}

// SetDelegate attaches or, with nil, detaches the capture delegate.
func (m *Manager) SetDelegate(d Delegate) {
	if d == nil {
		m.delegate.Store(nil)
		return
	}
	m.delegate.Store(&delegateRef{d: d})
}

// Delegate returns the capture delegate, or nil.
func (m *Manager) Delegate() Delegate {
	if ref := m.delegate.Load(); ref != nil {
		return ref.d
	}
	return nil
}

// Close stops the tap and releases all resources.
func (m *Manager) Close() error {
	m.SetEnabled(false)
	return nil
}

// start installs the tap. Caller holds m.lifecycle.
func (m *Manager) start() {
	if m.IsTapping() {
		return
	}

	tap, err := m.platform.CreateTap(tapEventTypes, m.HandleEvent)
	if err != nil || tap == nil {
		m.metrics.RecordCreateFailure()
		m.log.Debug("event tap not created", "error", err, "trusted", m.platform.Trusted())
		return
	}

	src, err := tap.CreateSource()
	if err != nil || src == nil {
		m.metrics.RecordCreateFailure()
		m.log.Warn("event tap source not created", "error", err)
		tap.Invalidate()
		tap.Release()
		return
	}

	att := m.newAttachment(src)

	m.mu.Lock()
	m.tap = tap
	m.source = src
	m.attach = att
	m.mu.Unlock()

	att.attach()
	m.stats.starts.Add(1)
	m.metrics.RecordStart()
	m.log.Info("event tap started", "mode", m.mode)
}

// stop tears the tap down: detach (joining the runner), then invalidate,
// then release. Caller holds m.lifecycle.
func (m *Manager) stop() {
	m.mu.RLock()
	att := m.attach
	m.mu.RUnlock()
	if att == nil {
		return
	}

	att.detach()

	// Taking the write lock waits out any callback still re-enabling the
	// tap on the main loop.
	m.mu.Lock()
	tap, src := m.tap, m.source
	m.tap, m.source, m.attach = nil, nil, nil
	m.mu.Unlock()

	tap.Enable(false)
	tap.Invalidate()
	src.Release()
	tap.Release()

	m.stats.stops.Add(1)
	m.metrics.RecordStop()
	m.log.Info("event tap stopped", "mode", m.mode)
}

func (m *Manager) newAttachment(src Source) attachment {
	if m.mode == DedicatedThread {
		return &threadAttachment{
			runner: NewRunner(m.platform, src, m.runnerSlice, m.log),
		}
	}
	return &mainAttachment{loop: m.platform.MainRunLoop(), source: src}
}

// reenable turns the tap back on after the OS disabled it by timeout.
func (m *Manager) reenable() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tap == nil {
		return
	}
	m.tap.Enable(true)
	m.stats.reenables.Add(1)
	m.metrics.RecordReenable()
	m.log.Debug("event tap re-enabled after timeout")
}

// HandleEvent is the tap callback. It returns ev to pass the event
// through, or the null Event after re-posting ev to this process.
func (m *Manager) HandleEvent(t EventType, ev Event) (result Event) {
	m.stats.events.Add(1)
	m.metrics.RecordEvent()

	switch t {
	case TapDisabledByTimeout:
		m.reenable()
		return ev
	case TapDisabledByUserInput:
		m.log.Debug("event tap disabled by user input")
		return ev
	}

	if !m.enabled.Load() {
		return ev
	}
	d := m.Delegate()
	if d == nil {
		return ev
	}

	began := time.Now()
	captured := false
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in event decision", "panic", r, "type", t)
			result, captured = ev, false
		}
		if captured {
			m.stats.captured.Add(1)
		} else {
			m.stats.passed.Add(1)
		}
		m.metrics.RecordDecision(captured, time.Since(began))
	}()

	var want bool
	switch t {
	case KeyDown, KeyUp:
		kev, err := m.translateKey(ev)
		if err != nil {
			m.translationFailed(t, err)
			return ev
		}
		want = d.ShouldCaptureKeyEvent(kev)
	case SystemDefined:
		sev, err := m.translateSystemDefined(ev)
		if err != nil {
			m.translationFailed(t, err)
			return ev
		}
		want = d.ShouldCaptureSystemDefinedEvent(sev)
	default:
		return ev
	}

	if !want {
		return ev
	}
	if err := m.repost(ev); err != nil {
		m.stats.repostFailures.Add(1)
		m.metrics.RecordRepostFailure()
		m.log.Debug("capture fell back to pass-through", "error", err, "type", t)
		return ev
	}
	captured = true
	return Event{}
}

func (m *Manager) translateKey(ev Event) (kev *KeyEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			kev, err = nil, fmt.Errorf("%w: %v", ErrTranslate, r)
		}
	}()
	kev, err = m.platform.TranslateKeyEvent(ev)
	if err == nil && kev == nil {
		err = ErrTranslate
	}
	return kev, err
}

func (m *Manager) translateSystemDefined(ev Event) (sev *SystemDefinedEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			sev, err = nil, fmt.Errorf("%w: %v", ErrTranslate, r)
		}
	}()
	sev, err = m.platform.TranslateSystemDefinedEvent(ev)
	if err == nil && sev == nil {
		err = ErrTranslate
	}
	return sev, err
}

func (m *Manager) translationFailed(t EventType, err error) {
	m.stats.translationFailures.Add(1)
	m.metrics.RecordTranslationFailure()
	m.log.Debug("event translation failed", "type", t, "error", err)
}

// repost delivers ev to the current process.
func (m *Manager) repost(ev Event) error {
	pid, err := m.lookupPID()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessLookup, err)
	}
	if err := m.platform.PostToProcess(pid, ev); err != nil {
		return fmt.Errorf("post to pid %d: %w", pid, err)
	}
	m.stats.reposts.Add(1)
	return nil
}

// Stats is a snapshot of the Manager's counters.
type Stats struct {
	Starts              uint64
	Stops               uint64
	Events              uint64
	Captured            uint64
	Passed              uint64
	TranslationFailures uint64
	Reenables           uint64
	Reposts             uint64
	RepostFailures      uint64
}

type stats struct {
	starts              atomic.Uint64
	stops               atomic.Uint64
	events              atomic.Uint64
	captured            atomic.Uint64
	passed              atomic.Uint64
	translationFailures atomic.Uint64
	reenables           atomic.Uint64
	reposts             atomic.Uint64
	repostFailures      atomic.Uint64
}

// Stats returns a snapshot of the Manager's counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Starts:              m.stats.starts.Load(),
		Stops:               m.stats.stops.Load(),
		Events:              m.stats.events.Load(),
		Captured:            m.stats.captured.Load(),
		Passed:              m.stats.passed.Load(),
		TranslationFailures: m.stats.translationFailures.Load(),
		Reenables:           m.stats.reenables.Load(),
		Reposts:             m.stats.reposts.Load(),
		RepostFailures:      m.stats.repostFailures.Load(),
	}
}
