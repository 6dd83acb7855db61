//go:build !unix

package main

import (
	"errors"
	"os"
)

func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}

func signalRetry(pid int) error {
	return errors.New("retry signals are not supported on this platform")
}

func signalStop(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}

func ignoreRetrySignal() {}
