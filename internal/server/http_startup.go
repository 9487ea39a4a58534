package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"resumatch/internal/config"
	"resumatch/internal/lexicon"
	"resumatch/internal/observability"
)

// Start runs the HTTP server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	s.om = om
	defer s.shutdownObservability(om)

	if err := s.startLexiconWatcher(om); err != nil {
		return err
	}
	defer s.stopLexiconWatcher()

	if err := s.startKeyWatcher(); err != nil {
		return err
	}
	defer s.stopKeyWatcher()

	httpServer := s.setupHTTPServer(om)
	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// Handler returns the fully wired HTTP handler
func (s *Server) Handler() http.Handler {
	om := s.observability()
	return om.HTTPMiddleware()(s.setupRoutes(om))
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// startLexiconWatcher hot-reloads the lexicon file when configured to
func (s *Server) startLexiconWatcher(om *observability.ObservabilityManager) error {
	if s.AppConfig == nil || !s.AppConfig.Matching.WatchLexicon || s.AppConfig.Matching.LexiconFile == "" {
		return nil
	}

	onReload := func(err error) {
		om.GetMetrics().RecordBusinessMetric(context.Background(), observability.MetricLexiconReload, err == nil,
			attribute.String("file", s.AppConfig.Matching.LexiconFile))
	}
	watcher, err := lexicon.NewWatcher(s.AppConfig.Matching, s.Engines, onReload, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create lexicon watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start lexicon watcher: %w", err)
	}
	s.LexiconWatcher = watcher
	return nil
}

func (s *Server) stopLexiconWatcher() {
	if s.LexiconWatcher == nil {
		return
	}
	if err := s.LexiconWatcher.Stop(); err != nil {
		s.Logger.LogError(err, "Failed to stop lexicon watcher")
	}
}

// startKeyWatcher polls Vault for rotated API keys when configured to
func (s *Server) startKeyWatcher() error {
	if s.AppConfig == nil {
		return nil
	}
	rotation := s.AppConfig.Server.APIKeyRotation
	vaultCfg := s.AppConfig.Vault
	if !rotation.Enabled || !vaultCfg.Enabled || vaultCfg.Secrets.APIKeys == "" {
		return nil
	}

	client, err := config.NewVaultClient(vaultCfg, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vault client for API key rotation: %w", err)
	}

	watcher := NewVaultWatcher(client, vaultCfg.Secrets.APIKeys, rotation.PollInterval, s.rotateAPIKeys, s.Logger)
	if err := watcher.Start(); err != nil {
		return err
	}
	s.KeyWatcher = watcher
	return nil
}

// rotateAPIKeys installs keys fetched from Vault. An empty list is ignored
// so a bad secret never disables authentication.
func (s *Server) rotateAPIKeys(keys []string, err error) {
	if err != nil {
		s.Logger.LogError(err, "API key rotation failed, keeping current keys")
		return
	}
	if len(keys) == 0 {
		s.Logger.Warn("API key secret is empty, keeping current keys")
		return
	}
	s.APIKeys.Replace(keys)
	s.Logger.Info("API keys rotated", "count", len(keys))
}

func (s *Server) stopKeyWatcher() {
	if s.KeyWatcher == nil {
		return
	}
	if err := s.KeyWatcher.Stop(); err != nil {
		s.Logger.LogError(err, "Failed to stop API key watcher")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:           om.HTTPMiddleware()(s.setupRoutes(om)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// startWithGracefulShutdown serves until ctx is done or the listener fails
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanupRateLimiter()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Context cancelled, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
