//go:build !darwin

package activation

import "context"

// WorkspaceObserver has no counterpart outside macOS.
type WorkspaceObserver struct{}

// NewWorkspaceObserver returns a source whose Run reports ErrUnsupported.
func NewWorkspaceObserver() *WorkspaceObserver {
	return &WorkspaceObserver{}
}

func (*WorkspaceObserver) Name() string { return "workspace" }

func (*WorkspaceObserver) Run(context.Context, func()) error {
	return ErrUnsupported
}
