package eventtap

import (
	"sync"
	"time"
)

// GoRunLoop is a run loop implemented with channels. It stands in for the
// native run loop where none exists and in tests. Wake is sticky: a wake
// delivered while no RunFor is in progress ends the next one immediately.
type GoRunLoop struct {
	wake chan struct{}

	mu      sync.Mutex
	sources map[Source]int
	adds    int
	removes int
}

// NewGoRunLoop creates an empty GoRunLoop.
func NewGoRunLoop() *GoRunLoop {
	return &GoRunLoop{
		wake:    make(chan struct{}, 1),
		sources: make(map[Source]int),
	}
}

// AddSource attaches src.
func (l *GoRunLoop) AddSource(src Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[src]++
	l.adds++
}

// RemoveSource detaches src.
func (l *GoRunLoop) RemoveSource(src Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sources[src] > 1 {
		l.sources[src]--
	} else {
		delete(l.sources, src)
	}
	l.removes++
}

// RunFor blocks until d elapses or Wake is called.
func (l *GoRunLoop) RunFor(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-l.wake:
	case <-t.C:
	}
}

// Wake ends the current or next RunFor.
func (l *GoRunLoop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Attached reports whether src is attached.
func (l *GoRunLoop) Attached(src Source) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sources[src] > 0
}

// Counts returns how many times sources were added and removed.
func (l *GoRunLoop) Counts() (adds, removes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adds, l.removes
}
