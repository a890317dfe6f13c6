package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  engine_id: first\n"), 0o600))

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cw.Close()

	assert.Equal(t, "first", cw.GetCurrentConfig().Search.EngineID)

	updates := cw.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cw.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("search:\n  engine_id: second\n"), 0o600))

	// A write can surface as several events; the file may be seen
	// half-written before the final content lands.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Search.EngineID == "second" {
				assert.Equal(t, "second", cw.GetCurrentConfig().Search.EngineID)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestConfigWatcherKeepsConfigOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cw.Close()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	cw.reload()

	assert.Equal(t, "info", cw.GetCurrentConfig().Logging.Level)
}

func TestNewConfigWatcherMissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "missing.yaml"), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestStaticWatcher(t *testing.T) {
	cfg := DefaultConfig()
	w := NewStaticWatcher(cfg)
	assert.Same(t, cfg, w.GetCurrentConfig())
	select {
	case <-w.Subscribe():
		t.Fatal("static watcher must never publish")
	default:
	}
	assert.NoError(t, w.Close())
}
