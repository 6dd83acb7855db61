//go:build !darwin

package permission

// Trusted always reports false: event taps exist only on macOS.
func Trusted() bool {
	return false
}

// Prompt is a no-op outside macOS.
func Prompt() bool {
	return false
}
