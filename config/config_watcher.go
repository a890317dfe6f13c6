package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Verify at compile time that ConfigWatcher implements Watcher
var _ Watcher = (*ConfigWatcher)(nil)

// ConfigWatcher reloads the config file when it changes. Each reload swaps
// in a fresh *Config; requests already holding the old one keep it.
type ConfigWatcher struct {
	currentConfig atomic.Value
	configPath    string
	watcher       *fsnotify.Watcher
	logger        *zap.Logger

	mu          sync.Mutex
	subscribers []chan *Config
}

// NewConfigWatcher loads configPath and starts watching its directory.
// Call Run to process change events.
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	initialConfig, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		configPath: filepath.Clean(configPath),
		watcher:    watcher,
		logger:     logger,
	}
	cw.currentConfig.Store(initialConfig)

	// Watch the directory: editors and secret mounts replace the file
	// rather than writing it in place.
	if err := watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	return cw, nil
}

// Subscribe allows components to receive config updates
func (cw *ConfigWatcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	cw.mu.Lock()
	cw.subscribers = append(cw.subscribers, ch)
	cw.mu.Unlock()
	return ch
}

// GetCurrentConfig returns the current configuration thread-safely
func (cw *ConfigWatcher) GetCurrentConfig() *Config {
	return cw.currentConfig.Load().(*Config)
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (cw *ConfigWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cw.logger.Info("Detected config file change, reloading", zap.String("path", cw.configPath))

	// LoadFile validates; a bad edit keeps the previous config live.
	newConfig, err := LoadFile(cw.configPath)
	if err != nil {
		cw.logger.Error("Failed to load new config", zap.Error(err))
		return
	}

	cw.currentConfig.Store(newConfig)

	cw.mu.Lock()
	for _, sub := range cw.subscribers {
		select {
		case sub <- newConfig:
		default:
		}
	}
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")
}

// Close stops watching and closes subscriber channels.
func (cw *ConfigWatcher) Close() error {
	cw.mu.Lock()
	for _, sub := range cw.subscribers {
		close(sub)
	}
	cw.subscribers = nil
	cw.mu.Unlock()
	return cw.watcher.Close()
}
