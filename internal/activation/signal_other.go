//go:build !unix

package activation

import "context"

// SignalSource is unavailable without SIGUSR1.
type SignalSource struct{}

func (SignalSource) Name() string { return "sigusr1" }

func (SignalSource) Run(context.Context, func()) error {
	return ErrUnsupported
}
