// Package activation produces the signals that tell an eventtap.Manager to
// retry installing its tap: the process becoming frontmost, Accessibility
// trust being granted, or an operator request.
package activation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrUnsupported is returned by sources that do not exist on this platform.
var ErrUnsupported = errors.New("activation source not supported on this platform")

// Target receives activation notifications. *eventtap.Manager implements it.
type Target interface {
	ApplicationActivated()
}

// Source emits signals until ctx is done. Run blocks; it returns nil when
// ctx ends and an error if the source cannot run at all.
type Source interface {
	Name() string
	Run(ctx context.Context, signal func()) error
}

// Watcher fans signals from all sources into a single Target. Signals that
// arrive while the target is still handling one are coalesced.
type Watcher struct {
	target  Target
	sources []Source
	log     *slog.Logger

	pending chan struct{}
	signals atomic.Uint64
	handled atomic.Uint64
}

// NewWatcher creates a Watcher. log may be nil.
func NewWatcher(target Target, log *slog.Logger, sources ...Source) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		target:  target,
		sources: sources,
		log:     log.With(slog.String("component", "activation")),
		pending: make(chan struct{}, 1),
	}
}

// Notify queues one activation. It never blocks.
func (w *Watcher) Notify() {
	w.signals.Add(1)
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Run starts every source and delivers their signals to the target until
// ctx is done. A source that fails to start is logged and skipped.
func (w *Watcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, src := range w.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			w.log.Debug("activation source started", "source", src.Name())
			if err := src.Run(ctx, w.Notify); err != nil {
				if errors.Is(err, ErrUnsupported) {
					w.log.Debug("activation source unavailable", "source", src.Name())
					return
				}
				w.log.Warn("activation source failed", "source", src.Name(), "error", err)
			}
		}(src)
	}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-w.pending:
			w.target.ApplicationActivated()
			w.handled.Add(1)
		}
	}
}

// Stats returns how many signals arrived and how many target calls they
// produced.
func (w *Watcher) Stats() (signals, handled uint64) {
	return w.signals.Load(), w.handled.Load()
}
