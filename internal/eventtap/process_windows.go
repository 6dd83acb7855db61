//go:build windows

package eventtap

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func currentProcess() (int, error) {
	pid := windows.GetCurrentProcessId()
	if pid == 0 {
		return 0, fmt.Errorf("%w: no process id", ErrProcessLookup)
	}
	return int(pid), nil
}
