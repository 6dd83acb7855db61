package eventtap

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// LoopProvider hands out the run loop of the calling OS thread.
type LoopProvider interface {
	CurrentRunLoop() RunLoop
}

// Runner services one event source on its own OS thread. The loop runs in
// bounded slices so a cancel that races the loop's startup is observed at
// the next slice boundary at the latest.
type Runner struct {
	loops  LoopProvider
	source Source
	slice  time.Duration
	log    *slog.Logger

	startOnce sync.Once
	started   atomic.Bool
	cancelled atomic.Bool
	done      chan struct{}

	mu   sync.Mutex
	loop RunLoop
}

// NewRunner creates a Runner for src. It does nothing until Start.
func NewRunner(loops LoopProvider, src Source, slice time.Duration, log *slog.Logger) *Runner {
	if slice <= 0 {
		slice = DefaultRunnerSlice
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		loops:  loops,
		source: src,
		slice:  slice,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Start launches the loop. Subsequent calls are no-ops.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

// Cancel asks the loop to exit. It does not wait; use Join for that.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)

	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.Wake()
	}
}

// Join blocks until the loop has detached the source and exited. It
// returns immediately if the runner was never started.
func (r *Runner) Join() {
	if !r.started.Load() {
		return
	}
	<-r.done
}

// Wait is Join bounded by ctx.
func (r *Runner) Wait(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Cancelled reports whether Cancel has been called.
func (r *Runner) Cancelled() bool {
	return r.cancelled.Load()
}

func (r *Runner) run() {
	// The goroutine exits still locked, so the runtime retires the thread
	// together with its run loop.
	runtime.LockOSThread()
	defer close(r.done)

	loop := r.loops.CurrentRunLoop()
	r.mu.Lock()
	r.loop = loop
	r.mu.Unlock()

	loop.AddSource(r.source)
	defer loop.RemoveSource(r.source)

	r.log.Debug("dedicated tap thread running")
	for !r.cancelled.Load() {
		r.runSlice(loop)
	}
	r.log.Debug("dedicated tap thread exiting")
}

func (r *Runner) runSlice(loop RunLoop) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic in dedicated tap thread", "panic", p)
		}
	}()
	loop.RunFor(r.slice)
}
