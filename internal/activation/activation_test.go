package activation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhook/internal/permission"
)

type countingTarget struct {
	calls atomic.Int32
	block chan struct{}
}

func (t *countingTarget) ApplicationActivated() {
	t.calls.Add(1)
	if t.block != nil {
		<-t.block
	}
}

// chanSource emits one signal per value received on fire.
type chanSource struct {
	fire chan struct{}
	err  error
}

func (s *chanSource) Name() string { return "chan" }

func (s *chanSource) Run(ctx context.Context, signal func()) error {
	if s.err != nil {
		return s.err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.fire:
			signal()
		}
	}
}

func runWatcher(t *testing.T, w *Watcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
}

func TestWatcher_DeliversSignals(t *testing.T) {
	target := &countingTarget{}
	src := &chanSource{fire: make(chan struct{})}
	w := NewWatcher(target, nil, src)
	stop := runWatcher(t, w)
	defer stop()

	src.fire <- struct{}{}
	require.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, time.Millisecond)

	src.fire <- struct{}{}
	require.Eventually(t, func() bool { return target.calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestWatcher_CoalescesWhileBusy(t *testing.T) {
	target := &countingTarget{block: make(chan struct{})}
	w := NewWatcher(target, nil)
	stop := runWatcher(t, w)

	w.Notify()
	require.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, time.Millisecond)

	// The target is blocked; these collapse into one pending call.
	for i := 0; i < 10; i++ {
		w.Notify()
	}
	target.block <- struct{}{}
	require.Eventually(t, func() bool { return target.calls.Load() == 2 }, time.Second, time.Millisecond)
	target.block <- struct{}{}

	stop()
	signals, handled := w.Stats()
	assert.Equal(t, uint64(11), signals)
	assert.Equal(t, uint64(2), handled)
	assert.Equal(t, int32(2), target.calls.Load())
}

func TestWatcher_SkipsFailingSources(t *testing.T) {
	target := &countingTarget{}
	bad := &chanSource{err: ErrUnsupported}
	good := &chanSource{fire: make(chan struct{})}
	w := NewWatcher(target, nil, bad, good)
	stop := runWatcher(t, w)
	defer stop()

	good.fire <- struct{}{}
	require.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestTrustPoller_SignalsOnGrant(t *testing.T) {
	var trusted atomic.Bool
	p := NewTrustPoller(permission.ProbeFunc(trusted.Load), 2*time.Millisecond)
	assert.Equal(t, "trust", p.Name())

	var signals atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, p.Run(ctx, func() { signals.Add(1) }))
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, signals.Load())

	trusted.Store(true)
	require.Eventually(t, func() bool { return signals.Load() == 1 }, time.Second, time.Millisecond)

	// Staying trusted does not signal again.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), signals.Load())

	cancel()
	wg.Wait()
}

func TestTrustPoller_Defaults(t *testing.T) {
	p := NewTrustPoller(nil, 0)
	assert.Equal(t, DefaultTrustPollInterval, p.interval)
	assert.NotNil(t, p.probe)
}
