package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// CrashReport is written to disk when a daemon goroutine panics.
type CrashReport struct {
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	Component    string         `json:"component,omitempty"`
	Goroutine    string         `json:"goroutine,omitempty"`
	PanicValue   string         `json:"panic_value"`
	StackTrace   string         `json:"stack_trace"`
	Context      map[string]any `json:"context,omitempty"`
}

// CrashHandlerConfig configures a CrashHandler.
type CrashHandlerConfig struct {
	// CrashDir is the directory crash dumps are written to.
	CrashDir string

	Version   string
	Component string

	// Logger receives a one-line error for every crash.
	Logger *slog.Logger

	// OnCrash is called after a crash is recorded.
	OnCrash func(CrashReport)
}

// CrashHandler records panics from daemon goroutines.
type CrashHandler struct {
	mu        sync.Mutex
	crashDir  string
	version   string
	component string
	log       *slog.Logger
	onCrash   func(CrashReport)
}

// DefaultCrashDir returns the platform-specific crash dump directory.
func DefaultCrashDir() string {
	switch runtime.GOOS {
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Logs", "DiagnosticReports", "keyhook")
	default:
		return filepath.Join(filepath.Dir(DefaultLogPath()), "crashes")
	}
}

// NewCrashHandler creates a CrashHandler. The crash directory is created
// lazily on the first crash.
func NewCrashHandler(cfg *CrashHandlerConfig) *CrashHandler {
	if cfg == nil {
		cfg = &CrashHandlerConfig{}
	}
	dir := cfg.CrashDir
	if dir == "" {
		dir = DefaultCrashDir()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CrashHandler{
		crashDir:  dir,
		version:   cfg.Version,
		component: cfg.Component,
		log:       log,
		onCrash:   cfg.OnCrash,
	}
}

// Dir returns the crash dump directory.
func (h *CrashHandler) Dir() string {
	return h.crashDir
}

// Go runs fn in a new goroutine. A panic in fn is recorded instead of
// crashing the process.
func (h *CrashHandler) Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.HandlePanic(r, name, nil)
			}
		}()
		fn()
	}()
}

// Recover runs fn and records a panic from it. It reports whether fn
// panicked.
func (h *CrashHandler) Recover(name string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			h.HandlePanic(r, name, nil)
		}
	}()
	fn()
	return false
}

// HandlePanic records a recovered panic value.
func (h *CrashHandler) HandlePanic(value any, goroutine string, ctx map[string]any) CrashReport {
	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		Component:    h.component,
		Goroutine:    goroutine,
		PanicValue:   fmt.Sprintf("%v", value),
		StackTrace:   string(debug.Stack()),
		Context:      ctx,
	}

	h.mu.Lock()
	path, err := h.writeCrashDump(report)
	h.mu.Unlock()

	if err != nil {
		h.log.Error("panic recovered", "goroutine", goroutine, "panic", report.PanicValue, "dump_error", err)
	} else {
		h.log.Error("panic recovered", "goroutine", goroutine, "panic", report.PanicValue, "dump", path)
	}

	if h.onCrash != nil {
		h.onCrash(report)
	}
	return report
}

func (h *CrashHandler) writeCrashDump(report CrashReport) (string, error) {
	if err := os.MkdirAll(h.crashDir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}

	name := fmt.Sprintf("crash-%s-%s.json",
		report.Timestamp.Format("20060102-150405.000"),
		report.Goroutine)
	path := filepath.Join(h.crashDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// CrashReports returns the crash reports found in the crash directory.
// Unreadable files are skipped.
func (h *CrashHandler) CrashReports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.crashDir, "crash-*.json"))
	if err != nil {
		return nil, err
	}

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// CleanupOldCrashReports removes crash reports older than maxAge.
func (h *CrashHandler) CleanupOldCrashReports(maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(h.crashDir, "crash-*.json"))
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
	return nil
}
