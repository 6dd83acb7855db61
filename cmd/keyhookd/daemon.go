package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"keyhook/internal/activation"
	"keyhook/internal/config"
	"keyhook/internal/eventtap"
	"keyhook/internal/health"
	"keyhook/internal/logging"
	"keyhook/internal/metrics"
	"keyhook/internal/permission"
	"keyhook/internal/policy"
)

// daemon wires the event tap to its policy, activation sources, config
// reloads and the HTTP endpoints.
type daemon struct {
	log      *logging.Logger
	crash    *logging.CrashHandler
	probe    permission.Probe
	policy   *policy.Policy
	manager  *eventtap.Manager
	registry *metrics.Registry
	checker  *health.Checker
	watcher  *activation.Watcher

	// debug pins the log level at debug across reloads.
	debug bool

	mu        sync.Mutex
	reloadErr error
}

func newLogger(c config.LoggingConfig, debug bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = logging.LevelDebug
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSizeMB:  c.MaxSizeMB,
		MaxAgeDays: c.MaxAgeDays,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
		Component:  "keyhookd",
	})
}

func threadingMode(c *config.Config) eventtap.ThreadingMode {
	if c.Tap.DedicatedThread {
		return eventtap.DedicatedThread
	}
	return eventtap.MainLoop
}

// newDaemon builds every component but installs nothing; start does that.
func newDaemon(cfg *config.Config, log *logging.Logger, platform eventtap.Platform, probe permission.Probe) (*daemon, error) {
	rules, err := policy.Compile(cfg.PolicySpec())
	if err != nil {
		return nil, fmt.Errorf("compile capture rules: %w", err)
	}

	d := &daemon{
		log:      log,
		probe:    probe,
		policy:   policy.New(rules),
		registry: metrics.NewRegistry("keyhook"),
		checker:  health.NewChecker(),
	}
	d.crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{
		Version:   Version,
		Component: "keyhookd",
		Logger:    log.Logger,
	})

	d.manager = eventtap.New(platform,
		eventtap.WithLogger(log.Logger),
		eventtap.WithMetrics(metrics.NewTapMetrics(d.registry)),
		eventtap.WithDelegate(d.policy),
		eventtap.WithThreadingMode(threadingMode(cfg)),
		eventtap.WithRunnerSlice(cfg.RunnerSlice()),
	)
	d.watcher = activation.NewWatcher(d.manager, log.Logger, d.sources(cfg)...)

	d.checker.RegisterFunc("tap", true, health.TapCheck(d.manager))
	d.checker.RegisterFunc("config", false, health.ErrorCheck("config reload failed", d.lastReloadErr))
	return d, nil
}

func (d *daemon) sources(cfg *config.Config) []activation.Source {
	var sources []activation.Source
	if cfg.Activation.ObserveWorkspace {
		sources = append(sources, activation.NewWorkspaceObserver())
	}
	if cfg.Activation.TrustPollIntervalMs > 0 {
		sources = append(sources, activation.NewTrustPoller(d.probe, cfg.TrustPollInterval()))
	}
	if cfg.Activation.Signal {
		sources = append(sources, activation.SignalSource{})
	}
	return sources
}

// applyConfig is the loader's OnChange callback. Activation, logging
// output and metrics listener changes need a restart.
func (d *daemon) applyConfig(prev, next *config.Config) {
	if level, err := logging.ParseLevel(next.Logging.Level); err == nil && !d.debug {
		d.log.SetLevel(level)
	}

	rules, err := policy.Compile(next.PolicySpec())
	if err != nil {
		d.setReloadErr(err)
		d.log.Warn("capture rules rejected, keeping previous rules", "error", err)
		return
	}
	d.policy.Update(rules)

	d.manager.SetUsesDedicatedThread(next.Tap.DedicatedThread)
	d.manager.SetEnabled(next.Tap.Enabled)
	d.setReloadErr(nil)

	if prev != nil && (prev.Activation != next.Activation || prev.Metrics != next.Metrics ||
		prev.Logging.Output != next.Logging.Output || prev.Logging.FilePath != next.Logging.FilePath) {
		d.log.Warn("some configuration changes take effect after restart")
	}
	d.log.Info("configuration reloaded",
		"enabled", next.Tap.Enabled,
		"dedicated_thread", next.Tap.DedicatedThread,
		"media_keys", len(next.Capture.MediaKeys),
		"shortcuts", len(next.Capture.Shortcuts))
}

func (d *daemon) setReloadErr(err error) {
	d.mu.Lock()
	d.reloadErr = err
	d.mu.Unlock()
}

func (d *daemon) lastReloadErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reloadErr
}

// watchErrors records reload failures until ctx is done.
func (d *daemon) watchErrors(ctx context.Context, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			d.setReloadErr(err)
			d.log.Warn("config reload failed, keeping previous configuration", "error", err)
		}
	}
}

func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.registry.HTTPHandler())
	d.checker.Mount(mux)
	return mux
}

// serveHTTP runs the metrics and health listener until ctx is done.
func (d *daemon) serveHTTP(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.crash.Go("http", func() {
		d.log.Info("serving metrics and health", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("metrics listener failed", "addr", addr, "error", err)
		}
	})
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}

// start installs the tap if enabled and starts the activation watcher.
func (d *daemon) start(ctx context.Context, cfg *config.Config) {
	if !d.probe.Trusted() {
		d.log.Warn(permission.Guidance)
	}
	d.manager.SetEnabled(cfg.Tap.Enabled)

	d.crash.Go("activation", func() {
		if err := d.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("activation watcher stopped", "error", err)
		}
	})
	d.checker.SetReady(true)
	d.log.Info("keyhookd started",
		"version", Version,
		"enabled", cfg.Tap.Enabled,
		"mode", threadingMode(cfg),
		"tapping", d.manager.IsTapping())
}

func (d *daemon) shutdown() {
	d.checker.SetReady(false)
	_ = d.manager.Close()

	st := d.manager.Stats()
	keyHits, systemHits := d.policy.Hits()
	d.log.Info("keyhookd stopped",
		slog.Uint64("events", st.Events),
		slog.Uint64("captured", st.Captured),
		slog.Uint64("passed", st.Passed),
		slog.Uint64("key_hits", keyHits),
		slog.Uint64("system_hits", systemHits))
}
