package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"keyhook/internal/config"
)

var errNotRunning = errors.New("keyhookd is not running")

func pidFilePath() string {
	return filepath.Join(config.KeyhookDir(), "keyhookd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errNotRunning
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid file %s", path)
	}
	return pid, nil
}

// runningPID returns the pid of a live daemon. A stale pid file counts as
// not running.
func runningPID(path string) (int, error) {
	pid, err := readPIDFile(path)
	if err != nil {
		return 0, err
	}
	if !processAlive(pid) {
		return 0, errNotRunning
	}
	return pid, nil
}
