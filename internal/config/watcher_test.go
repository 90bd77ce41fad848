package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestConfigWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, `
server:
  port: 8080
log:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	watcher := NewConfigWatcher(cfg, path, logrus.New())
	var mu sync.Mutex
	var received *Config
	watcher.OnConfigChange(func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		received = c
	})

	require.NoError(t, watcher.Start())
	defer watcher.Stop()
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, path, `
server:
  port: 9090
log:
  level: debug
`)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil && received.Server.Port == 9090
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, "debug", watcher.GetConfig().Log.Level)
}

func TestConfigWatcher_IgnoresInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	watcher := NewConfigWatcher(cfg, path, logrus.New())
	require.NoError(t, watcher.viper.ReadInConfig())

	called := false
	watcher.OnConfigChange(func(*Config) { called = true })

	watcher.viper.Set("analysis.test_fraction", 2.0)
	watcher.reload(path)

	assert.False(t, called)
	assert.Same(t, cfg, watcher.GetConfig())
}

func TestConfigWatcher_StoppedSkipsReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	watcher := NewConfigWatcher(cfg, path, nil)
	require.NoError(t, watcher.viper.ReadInConfig())

	called := false
	watcher.OnConfigChange(func(*Config) { called = true })
	watcher.Stop()
	watcher.reload(path)

	assert.False(t, called)
}

func TestConfigWatcher_MissingFile(t *testing.T) {
	watcher := NewConfigWatcher(Default(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, watcher.Start())
}
