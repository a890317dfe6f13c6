package config

// Watcher defines the behavior we expect from any configuration watcher.
// Handlers call GetCurrentConfig once per request and treat the result as
// read-only.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}

// Verify at compile time that StaticWatcher implements Watcher
var _ Watcher = (*StaticWatcher)(nil)

// StaticWatcher serves a fixed configuration. It is used when sift runs
// without a config file, and in tests.
type StaticWatcher struct {
	cfg *Config
}

// NewStaticWatcher wraps cfg.
func NewStaticWatcher(cfg *Config) *StaticWatcher {
	return &StaticWatcher{cfg: cfg}
}

// GetCurrentConfig implements Watcher
func (s *StaticWatcher) GetCurrentConfig() *Config { return s.cfg }

// Subscribe implements Watcher. The channel never fires.
func (s *StaticWatcher) Subscribe() <-chan *Config { return make(chan *Config) }

// Close implements Watcher
func (s *StaticWatcher) Close() error { return nil }
