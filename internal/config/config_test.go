package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, Version, cfg.Version)
	assert.True(t, cfg.Tap.Enabled)
	assert.True(t, cfg.Tap.DedicatedThread)
	assert.Equal(t, 250*time.Millisecond, cfg.RunnerSlice())
	assert.Equal(t, 2*time.Second, cfg.TrustPollInterval())
	assert.False(t, cfg.Activation.ObserveWorkspace, "daemons recover through the trust poller")
	assert.Contains(t, cfg.Capture.MediaKeys, "play")
	assert.True(t, strings.HasSuffix(cfg.Logging.FilePath, "keyhookd.log"))

	require.NoError(t, cfg.Validate())
	assert.Empty(t, Check(cfg))
}

func TestConfigPath(t *testing.T) {
	t.Setenv("KEYHOOK_CONFIG", "")
	dir := t.TempDir()
	t.Setenv("KEYHOOK_DATA_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), ConfigPath())
	assert.Equal(t, dir, KeyhookDir())

	t.Setenv("KEYHOOK_CONFIG", "/etc/keyhook.yaml")
	assert.Equal(t, "/etc/keyhook.yaml", ConfigPath())
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Tap, cfg.Tap)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
version = 1

[tap]
enabled = true
dedicated_thread = false
runner_slice_ms = 100

[capture]
media_keys = ["play", "volume_up"]
shortcuts = ["cmd+shift+space"]

[activation]
trust_poll_interval_ms = 0

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Tap.DedicatedThread)
	assert.Equal(t, 100*time.Millisecond, cfg.RunnerSlice())
	assert.Equal(t, []string{"play", "volume_up"}, cfg.Capture.MediaKeys)
	assert.Equal(t, []string{"cmd+shift+space"}, cfg.Capture.Shortcuts)
	assert.Zero(t, cfg.TrustPollInterval())
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset fields keep defaults.
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Activation.ObserveWorkspace)
}

func TestLoadTOML_UnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[tap]
enabeld = true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tap.enabeld")
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.json", `{
  "version": 1,
  "tap": {"enabled": false, "dedicated_thread": true, "runner_slice_ms": 500},
  "capture": {"media_keys": ["next"]}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Tap.Enabled)
	assert.Equal(t, 500, cfg.Tap.RunnerSliceMs)
	assert.Equal(t, []string{"next"}, cfg.Capture.MediaKeys)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
version: 1
tap:
  enabled: true
  dedicated_thread: true
  runner_slice_ms: 250
capture:
  shortcuts: ["ctrl+f3"]
  all_system_defined: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Capture.AllSystemDefined)
	assert.Equal(t, []string{"ctrl+f3"}, cfg.Capture.Shortcuts)
}

func TestLoadAutoDetect(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(writeFile(t, dir, "keyhook.conf", `{"version": 1, "tap": {"enabled": false, "runner_slice_ms": 250}}`))
	require.NoError(t, err)
	assert.False(t, cfg.Tap.Enabled)

	cfg, err = Load(writeFile(t, dir, "keyhook2.conf", "version: 1\nlogging:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)

	_, err = Load(writeFile(t, dir, "broken.conf", "{{{ not a config"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[capture]
media_keys = ["warp_drive"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "warp_drive")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("KEYHOOK_ENABLED", "false")
	t.Setenv("KEYHOOK_DEDICATED_THREAD", "not-a-bool")
	t.Setenv("KEYHOOK_LOG_LEVEL", "debug")
	t.Setenv("KEYHOOK_LOG_PATH", "/tmp/k.log")
	t.Setenv("KEYHOOK_METRICS_ADDR", "127.0.0.1:9999")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.False(t, cfg.Tap.Enabled)
	assert.True(t, cfg.Tap.DedicatedThread, "malformed bool is ignored")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/k.log", cfg.Logging.FilePath)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.ListenAddr)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Capture.MediaKeys[0] = "mute"
	clone.Tap.Enabled = false

	assert.Equal(t, "play", cfg.Capture.MediaKeys[0])
	assert.True(t, cfg.Tap.Enabled)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{".toml", ".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config"+ext)
			cfg := DefaultConfig()
			cfg.Tap.DedicatedThread = false
			cfg.Capture.Shortcuts = []string{"cmd+tab"}
			require.NoError(t, cfg.Save(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.False(t, loaded.Tap.DedicatedThread)
			assert.Equal(t, []string{"cmd+tab"}, loaded.Capture.Shortcuts)
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg.Capture.MediaKeys, again.Capture.MediaKeys)
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYHOOK_DATA_DIR", dir)
	t.Chdir(t.TempDir())

	assert.Empty(t, FindConfigFile())
	path := writeFile(t, dir, "config.yaml", "version: 1\n")
	assert.Equal(t, path, FindConfigFile())
}
