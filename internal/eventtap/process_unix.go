//go:build unix

package eventtap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// currentProcess returns the pid captured events are re-posted to.
func currentProcess() (int, error) {
	pid := unix.Getpid()
	if pid <= 0 {
		return 0, fmt.Errorf("%w: getpid returned %d", ErrProcessLookup, pid)
	}
	return pid, nil
}
