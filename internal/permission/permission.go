// Package permission reports whether this process may intercept
// system-wide input events.
//
// On macOS this is Accessibility trust (AXIsProcessTrustedWithOptions).
// Trust can be granted or revoked while the process runs, so nothing here
// caches its answer.
package permission

// Probe answers whether event interception is currently permitted.
type Probe interface {
	Trusted() bool
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func() bool

// Trusted implements Probe.
func (f ProbeFunc) Trusted() bool {
	return f()
}

// System is the Probe backed by the operating system.
var System Probe = ProbeFunc(Trusted)

// Guidance is shown to users when trust is missing.
const Guidance = "Accessibility permission required: open System Settings > Privacy & Security > Accessibility and enable this application."

// Status summarizes the trust state for display.
func Status() (bool, string) {
	if Trusted() {
		return true, "event interception permitted"
	}
	return false, Guidance
}
