package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/server"
	"github.com/teilomillet/sift/server/handlers"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (default: environment only)")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("sift %s\n", Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, cfg, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg := config.DefaultConfig()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newWatcher returns a hot-reloading watcher for path, or a static one when
// configuration comes from the environment. watch is nil for the latter.
func newWatcher(path string, cfg *config.Config, logger *zap.Logger) (config.Watcher, func(context.Context) error, error) {
	if path == "" {
		return config.NewStaticWatcher(cfg), nil, nil
	}
	cw, err := config.NewConfigWatcher(path, logger)
	if err != nil {
		return nil, nil, err
	}
	return cw, cw.Run, nil
}

func run(ctx context.Context, path string, cfg *config.Config, logger *zap.Logger) error {
	watcher, watch, err := newWatcher(path, cfg, logger)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	m := metrics.NewMetrics()
	handler := server.NewHandler(cfg, watcher, m, logger,
		handlers.WithTokenCounter(validation.SharedTokenCounter()),
	)
	srv := server.NewServer(cfg.Server, handler, logger)

	logger.Info("Starting sift",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.Completion.Model),
		zap.Bool("completion_configured", cfg.Completion.APIKey != ""),
		zap.Int("search_keys", countKeys(cfg.Search.APIKeys)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if watch != nil {
		updates := watcher.Subscribe()
		g.Go(func() error { return watch(gctx) })
		g.Go(func() error {
			reportReloads(gctx, cfg, updates, logger)
			return nil
		})
	}
	return g.Wait()
}

// reportReloads logs each applied configuration. Handler settings take
// effect immediately; server settings fixed at startup are flagged instead.
func reportReloads(ctx context.Context, startup *config.Config, updates <-chan *config.Config, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			logger.Info("Configuration applied",
				zap.String("model", cfg.Completion.Model),
				zap.Bool("completion_configured", cfg.Completion.APIKey != ""),
				zap.Int("search_keys", countKeys(cfg.Search.APIKeys)),
			)
			if restartRequired(startup, cfg) {
				logger.Warn("Server, route or CORS changes take effect after restart")
			}
		}
	}
}

func restartRequired(startup, cfg *config.Config) bool {
	if startup.Server.Port != cfg.Server.Port ||
		startup.Server.CORS.Enabled != cfg.Server.CORS.Enabled ||
		strings.Join(startup.Server.CORS.AllowedOrigins, ",") != strings.Join(cfg.Server.CORS.AllowedOrigins, ",") ||
		len(startup.Routes) != len(cfg.Routes) {
		return true
	}
	for i, r := range startup.Routes {
		c := cfg.Routes[i]
		if r.Path != c.Path || r.Handler != c.Handler || strings.Join(r.Aliases, ",") != strings.Join(c.Aliases, ",") {
			return true
		}
	}
	return false
}

func countKeys(keys []string) int {
	n := 0
	for _, k := range keys {
		if k != "" {
			n++
		}
	}
	return n
}
