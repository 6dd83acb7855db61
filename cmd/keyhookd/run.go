package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keyhook/internal/config"
	"keyhook/internal/eventtap"
	"keyhook/internal/logging"
	"keyhook/internal/permission"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the event tap daemon in the foreground",
		Long: `Runs keyhookd until SIGINT or SIGTERM.

The configuration file is watched and reloaded on change. SIGUSR1 (or
'keyhookd retry') makes the daemon retry installing its tap, which is
useful right after granting Accessibility permission.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalContext(cmd.Context())
			defer cancel()
			return runDaemon(ctx, opts, prompt)
		},
	}

	cmd.Flags().BoolVar(&prompt, "prompt", false, "Show the macOS Accessibility prompt if permission is missing")
	return cmd
}

func runDaemon(ctx context.Context, opts *rootOptions, prompt bool) error {
	path := opts.resolveConfigPath()
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	defer loader.Close()

	log, err := newLogger(cfg.Logging, opts.debug)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	for _, w := range config.Check(cfg).Warnings() {
		log.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	pidPath := pidFilePath()
	if pid, err := runningPID(pidPath); err == nil && pid != os.Getpid() {
		return fmt.Errorf("keyhookd already running (pid %d)", pid)
	}
	if err := writePIDFile(pidPath); err != nil {
		return err
	}
	defer os.Remove(pidPath)

	if !cfg.Activation.Signal {
		ignoreRetrySignal()
	}
	if prompt && !permission.Trusted() {
		permission.Prompt()
	}

	d, err := newDaemon(cfg, log, eventtap.NewPlatform(permission.System), permission.System)
	if err != nil {
		return err
	}
	d.debug = opts.debug

	loader.OnChange(d.applyConfig)
	if err := loader.Watch(); err != nil {
		log.Warn("config hot reload disabled", "path", path, "error", err)
	} else {
		go d.watchErrors(ctx, loader.Errors())
	}

	if cfg.Metrics.Enabled {
		d.serveHTTP(ctx, cfg.Metrics.ListenAddr)
	}

	d.start(ctx, cfg)
	defer d.shutdown()

	if err := eventtap.RunMain(ctx); err != nil {
		if !errors.Is(err, eventtap.ErrNotMainThread) {
			return err
		}
		log.Warn("main run loop unavailable, main-loop mode will not deliver events", "error", err)
		<-ctx.Done()
	}
	return nil
}
