package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(errs ValidationErrors) []string {
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 99 }, "version"},
		{"runner slice", func(c *Config) { c.Tap.RunnerSliceMs = 1 }, "tap.runner_slice_ms"},
		{"media key", func(c *Config) { c.Capture.MediaKeys = []string{"nope"} }, "capture"},
		{"shortcut", func(c *Config) { c.Capture.Shortcuts = []string{"super+a"} }, "capture"},
		{"trust poll", func(c *Config) { c.Activation.TrustPollIntervalMs = 5 }, "activation.trust_poll_interval_ms"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"log file", func(c *Config) { c.Logging.Output = "both"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "nowhere" }, "metrics.listen_addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, fieldsOf(verrs), tt.field)
		})
	}
}

func TestValidate_SchemaCatchesRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.MaxBackups = -1

	errs := Check(cfg)
	assert.Contains(t, fieldsOf(errs), "logging.max_backups")
	assert.Contains(t, fieldsOf(errs), "schema")
}

func TestValidate_Warnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.MediaKeys = nil

	errs := Check(cfg)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].IsWarning())
	assert.False(t, errs.HasErrors())
	assert.NoError(t, cfg.Validate())

	cfg.Capture.AllKeys = true
	warnings := Check(cfg).Warnings()
	assert.Contains(t, fieldsOf(warnings), "capture.rules.all_keys")
}

func TestValidationErrorsString(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}
	assert.Equal(t, "config: a: bad; config: b: worse", errs.Error())
	assert.Empty(t, ValidationErrors(nil).Error())
	assert.Equal(t, "config: x: value must be between 1 and 2", RangeError("x", 1, 2).Error())
}

func TestSchemaDocument(t *testing.T) {
	assert.Contains(t, Schema(), `"runner_slice_ms"`)
	_, err := loadSchema()
	require.NoError(t, err)
}
