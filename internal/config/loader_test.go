package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(path))

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	defer l.Close()

	changes := make(chan [2]*Config, 4)
	l.OnChange(func(old, new *Config) { changes <- [2]*Config{old, new} })
	require.NoError(t, l.Watch())

	cfg.Tap.DedicatedThread = false
	require.NoError(t, cfg.Save(path))

	select {
	case ch := <-changes:
		assert.True(t, ch[0].Tap.DedicatedThread)
		assert.False(t, ch[1].Tap.DedicatedThread)
		assert.Same(t, ch[1], l.Config())
	case err := <-l.Errors():
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
}

func TestLoader_InvalidReloadKeepsConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "version = 1\n")

	l := NewLoader(path)
	before, err := l.Load()
	require.NoError(t, err)
	defer l.Close()

	called := false
	l.OnChange(func(_, _ *Config) { called = true })

	writeFile(t, filepath.Dir(path), "config.toml", "[logging]\nlevel = \"loud\"\n")
	require.Error(t, l.Reload())
	assert.False(t, called)
	assert.Same(t, before, l.Config())
}

func TestLoader_ReloadAfterClose(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "version = 1\n")
	l := NewLoader(path)
	require.NoError(t, l.Close())
	assert.Error(t, l.Reload())
	assert.Equal(t, path, l.Path())
}
