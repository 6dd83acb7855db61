//go:build !unix && !windows

package eventtap

import "os"

func currentProcess() (int, error) {
	return os.Getpid(), nil
}
