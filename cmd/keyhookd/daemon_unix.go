//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// processAlive sends signal 0, since FindProcess always succeeds on Unix.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// signalRetry asks the daemon to retry its tap, as an activation would.
func signalRetry(pid int) error {
	return syscall.Kill(pid, syscall.SIGUSR1)
}

func signalStop(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// ignoreRetrySignal keeps a stray `keyhookd retry` from killing a daemon
// that runs without the signal activation source.
func ignoreRetrySignal() {
	signal.Ignore(syscall.SIGUSR1)
}
