package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keyhook/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the configuration",
	}
	cmd.AddCommand(
		newConfigShowCmd(opts),
		newConfigInitCmd(opts),
		newConfigValidateCmd(opts),
		newConfigSchemaCmd(),
	)
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Prints the configuration after defaults and KEYHOOK_* environment overrides.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := formatExt(format)
			if err != nil {
				return err
			}
			cfg, err := config.Load(opts.resolveConfigPath())
			if err != nil {
				return err
			}
			data, err := cfg.Encode(ext)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "Output format: toml, json, yaml")
	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file",
		Long:  "Reports errors and warnings. Exits non-zero only on errors.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.resolveConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			return validateFile(cmd, path)
		},
	}
}

func validateFile(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	issues := config.Check(cfg)
	for _, w := range issues.Warnings() {
		fmt.Fprintf(out, "warning: %s: %s\n", w.Field, w.Message)
	}
	fmt.Fprintf(out, "%s: ok\n", path)
	return nil
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.Schema())
			return err
		},
	}
}

func formatExt(format string) (string, error) {
	switch strings.ToLower(format) {
	case "toml":
		return ".toml", nil
	case "json":
		return ".json", nil
	case "yaml", "yml":
		return ".yaml", nil
	default:
		return "", fmt.Errorf("unknown format %q (supported: %s)", format,
			strings.Join(config.SupportedConfigFormats(), ", "))
	}
}

