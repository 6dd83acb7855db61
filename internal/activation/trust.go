package activation

import (
	"context"
	"time"

	"keyhook/internal/permission"
)

// DefaultTrustPollInterval is how often TrustPoller asks the probe.
const DefaultTrustPollInterval = 2 * time.Second

// TrustPoller signals when the probe flips from untrusted to trusted. The
// OS posts no notification for Accessibility grants, so it polls.
type TrustPoller struct {
	probe    permission.Probe
	interval time.Duration
}

// NewTrustPoller creates a TrustPoller. A non-positive interval selects
// DefaultTrustPollInterval.
func NewTrustPoller(probe permission.Probe, interval time.Duration) *TrustPoller {
	if probe == nil {
		probe = permission.System
	}
	if interval <= 0 {
		interval = DefaultTrustPollInterval
	}
	return &TrustPoller{probe: probe, interval: interval}
}

func (p *TrustPoller) Name() string { return "trust" }

func (p *TrustPoller) Run(ctx context.Context, signal func()) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	trusted := p.probe.Trusted()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := p.probe.Trusted()
			if now && !trusted {
				signal()
			}
			trusted = now
		}
	}
}
