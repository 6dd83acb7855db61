//go:build darwin

package activation

/*
#cgo LDFLAGS: -framework AppKit -framework Foundation

#include "workspace_darwin.h"
*/
import "C"

import (
	"context"
	"errors"
	"sync"
)

// The native observer is process-wide; every running WorkspaceObserver
// subscribes to it.
var workspace struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func()
}

//export keyhookWorkspaceActivated
func keyhookWorkspaceActivated() {
	workspace.mu.Lock()
	fns := make([]func(), 0, len(workspace.subs))
	for _, fn := range workspace.subs {
		fns = append(fns, fn)
	}
	workspace.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// WorkspaceObserver signals whenever this process becomes the frontmost
// application. It relies on the main run loop running, see
// eventtap.RunMain.
//
// A process without an NSApplication, such as keyhookd, is almost never
// frontmost, so it rarely fires there. Such hosts rely on TrustPoller.
type WorkspaceObserver struct{}

// NewWorkspaceObserver returns the NSWorkspace activation source.
func NewWorkspaceObserver() *WorkspaceObserver {
	return &WorkspaceObserver{}
}

func (*WorkspaceObserver) Name() string { return "workspace" }

func (*WorkspaceObserver) Run(ctx context.Context, signal func()) error {
	workspace.mu.Lock()
	if workspace.subs == nil {
		workspace.subs = make(map[uint64]func())
	}
	if len(workspace.subs) == 0 {
		if C.khStartWorkspaceObserver() != 0 {
			workspace.mu.Unlock()
			return errors.New("NSWorkspace observer registration failed")
		}
	}
	workspace.next++
	id := workspace.next
	workspace.subs[id] = signal
	workspace.mu.Unlock()

	<-ctx.Done()

	workspace.mu.Lock()
	delete(workspace.subs, id)
	if len(workspace.subs) == 0 {
		C.khStopWorkspaceObserver()
	}
	workspace.mu.Unlock()
	return nil
}
