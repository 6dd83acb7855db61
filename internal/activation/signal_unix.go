//go:build unix

package activation

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalSource signals on SIGUSR1, so an operator can force a retry with
// `kill -USR1`.
type SignalSource struct{}

func (SignalSource) Name() string { return "sigusr1" }

func (SignalSource) Run(ctx context.Context, emit func()) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			emit()
		}
	}
}
