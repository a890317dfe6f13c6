// Package server assembles the sift HTTP server: handlers, router and the
// listener lifecycle.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/teilomillet/sift/config"
	"github.com/teilomillet/sift/server/handlers"
	"github.com/teilomillet/sift/server/metrics"
	"github.com/teilomillet/sift/server/routing"
	"go.uber.org/zap"
)

// defaultShutdownTimeout applies when the config leaves it at zero.
const defaultShutdownTimeout = 5 * time.Second

// NewHandler wires the named handlers into a router for cfg's routes. The
// handlers read watcher's configuration on every request.
func NewHandler(cfg *config.Config, watcher config.Watcher, m *metrics.Metrics, logger *zap.Logger, opts ...handlers.Option) http.Handler {
	named := map[string]http.Handler{
		"query":   handlers.NewQueryHandler(watcher, m, logger, opts...),
		"search":  handlers.NewSearchHandler(watcher, m, logger, opts...),
		"health":  handlers.NewHealthHandler(watcher, m, logger),
		"metrics": m.Handler(),
	}
	return routing.NewRouter(cfg, named, m, logger)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			ErrorLog:       zap.NewStdLog(logger),
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Start listens on the configured port and blocks until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
