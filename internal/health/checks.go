package health

import (
	"context"
)

// TapState is the view of the event tap the tap check needs.
// *eventtap.Manager implements it.
type TapState interface {
	Enabled() bool
	IsTapping() bool
	CanTapEvents() bool
}

// TapCheck reports whether the tap matches the host's intent. A disabled
// tap is healthy. An enabled tap that is not installed is degraded: the
// daemon keeps running and retries on the next activation.
func TapCheck(tap TapState) Check {
	return func(ctx context.Context) CheckResult {
		enabled := tap.Enabled()
		tapping := tap.IsTapping()
		trusted := tap.CanTapEvents()
		details := map[string]any{
			"enabled": enabled,
			"tapping": tapping,
			"trusted": trusted,
		}

		switch {
		case !enabled:
			return CheckResult{Status: StatusHealthy, Message: "tap disabled", Details: details}
		case tapping:
			return CheckResult{Status: StatusHealthy, Message: "tapping", Details: details}
		case !trusted:
			return CheckResult{Status: StatusDegraded, Message: "waiting for Accessibility permission", Details: details}
		default:
			return CheckResult{Status: StatusDegraded, Message: "tap not installed, retry pending", Details: details}
		}
	}
}

// ErrorCheck turns a function returning the last error of a component
// into a check. A nil error is healthy; anything else is degraded.
func ErrorCheck(message string, last func() error) Check {
	return func(ctx context.Context) CheckResult {
		if err := last(); err != nil {
			return CheckResult{
				Status:  StatusDegraded,
				Message: message,
				Error:   err.Error(),
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}
