package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"keyhook/internal/config"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

type rootOptions struct {
	configPath string
	debug      bool
}

// resolveConfigPath returns --config, an existing config file in the
// usual places, or the default path in that order.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if found := config.FindConfigFile(); found != "" {
		return found
	}
	return config.ConfigPath()
}

func (o *rootOptions) bindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "Config file (default: search . then the data directory)")
	fs.BoolVarP(&o.debug, "debug", "d", false, "Enable debug logging")
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "keyhookd",
		Short: "System-wide media key and shortcut capture",
		Long: `keyhookd installs a macOS event tap and re-delivers selected key and
media-key events to itself instead of the frontmost application.

Event interception requires Accessibility permission:
  System Settings > Privacy & Security > Accessibility

Quick start:
  keyhookd config init   # Write a default config file
  keyhookd run           # Start tapping in the foreground
  keyhookd status        # Check permission and daemon state`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.bindFlags(cmd.PersistentFlags())
	cmd.SetVersionTemplate(fmt.Sprintf("keyhookd %s (commit: %s)\n", Version, Commit))

	cmd.AddCommand(
		newRunCmd(opts),
		newStatusCmd(opts),
		newRetryCmd(),
		newStopCmd(),
		newConfigCmd(opts),
	)
	return cmd
}
