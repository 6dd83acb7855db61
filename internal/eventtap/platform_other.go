//go:build !darwin

package eventtap

import (
	"context"
	"fmt"
	"runtime"

	"keyhook/internal/permission"
)

// unsupportedPlatform never creates a tap. The Manager built on it stays
// in the not-tapping state.
type unsupportedPlatform struct {
	probe permission.Probe
	main  *GoRunLoop
}

// NewPlatform returns a platform whose taps always fail to install.
func NewPlatform(probe permission.Probe) Platform {
	if probe == nil {
		probe = permission.System
	}
	return &unsupportedPlatform{probe: probe, main: NewGoRunLoop()}
}

func (p *unsupportedPlatform) Trusted() bool {
	return p.probe.Trusted()
}

func (p *unsupportedPlatform) CreateTap([]EventType, Callback) (Tap, error) {
	return nil, fmt.Errorf("%w: %w on %s", ErrTapCreate, ErrUnsupported, runtime.GOOS)
}

func (p *unsupportedPlatform) MainRunLoop() RunLoop {
	return p.main
}

func (p *unsupportedPlatform) CurrentRunLoop() RunLoop {
	return NewGoRunLoop()
}

func (p *unsupportedPlatform) TranslateKeyEvent(Event) (*KeyEvent, error) {
	return nil, ErrUnsupported
}

func (p *unsupportedPlatform) TranslateSystemDefinedEvent(Event) (*SystemDefinedEvent, error) {
	return nil, ErrUnsupported
}

func (p *unsupportedPlatform) PostToProcess(int, Event) error {
	return ErrUnsupported
}

// RunMain blocks until ctx is done.
func RunMain(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
