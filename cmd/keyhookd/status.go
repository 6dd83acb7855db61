package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"keyhook/internal/config"
	"keyhook/internal/health"
	"keyhook/internal/permission"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show permission and daemon state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, opts *rootOptions) error {
	fmt.Fprintln(w, "=== keyhookd Status ===")
	fmt.Fprintln(w)

	trusted, msg := permission.Status()
	fmt.Fprintf(w, "Accessibility: %s\n", yesNo(trusted, "granted", "missing"))
	if !trusted {
		fmt.Fprintf(w, "  %s\n", msg)
	}

	path := opts.resolveConfigPath()
	fmt.Fprintf(w, "Config file:   %s\n", path)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(w, "  invalid: %v\n", err)
	}

	pid, err := runningPID(pidFilePath())
	switch {
	case errors.Is(err, errNotRunning):
		fmt.Fprintln(w, "Daemon:        not running")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(w, "Daemon:        running (pid %d)\n", pid)

	if cfg == nil || !cfg.Metrics.Enabled {
		return nil
	}
	resp, err := fetchHealth(ctx, cfg.Metrics.ListenAddr)
	if err != nil {
		fmt.Fprintf(w, "Health:        unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "Health:        %s (up %s)\n", resp.Status, resp.Uptime)
	for _, name := range []string{"tap", "config"} {
		if r, ok := resp.Components[name]; ok {
			line := fmt.Sprintf("  %-7s %s", name+":", r.Status)
			if r.Message != "" {
				line += " - " + r.Message
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func fetchHealth(ctx context.Context, addr string) (*health.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz?full=true", nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var out health.Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &out, nil
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Ask a running daemon to retry installing its tap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := runningPID(pidFilePath())
			if err != nil {
				return err
			}
			if err := signalRetry(pid); err != nil {
				return fmt.Errorf("signal pid %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retry requested (pid %d)\n", pid)
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := runningPID(pidFilePath())
			if err != nil {
				return err
			}
			if err := signalStop(pid); err != nil {
				return fmt.Errorf("signal pid %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stop requested (pid %d)\n", pid)
			return nil
		},
	}
}
