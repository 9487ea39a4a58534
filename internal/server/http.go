package server

import (
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/lexicon"
	"resumatch/internal/observability"
	"resumatch/internal/staging"
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys *APIKeySet

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Request size limits
	MaxRequestSize int64
	MaxFileSize    int64

	// Uploads
	AllowedExtensions []string
	KeepStaged        bool
	Staging           staging.Store

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Active keyword engine, swapped by the lexicon watcher
	Engines        *keywords.Store
	LexiconWatcher *lexicon.Watcher
	KeyWatcher     *VaultWatcher

	Logger *errors.Logger

	om        *observability.ObservabilityManager
	startedAt time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host              string
	Port              string
	Version           string
	APIKeys           []string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxRequestSize    int64
	MaxFileSize       int64
	AllowedExtensions []string
	KeepStaged        bool
	RateLimit         *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, engines *keywords.Store, store staging.Store, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}
	if store == nil {
		store = staging.NopStore{}
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Server{
		Host:              cfg.Host,
		Port:              cfg.Port,
		Version:           cfg.Version,
		AppConfig:         appCfg,
		APIKeys:           NewAPIKeySet(cfg.APIKeys),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ShutdownTimeout:   shutdownTimeout,
		MaxRequestSize:    cfg.MaxRequestSize,
		MaxFileSize:       cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedExtensions,
		KeepStaged:        cfg.KeepStaged,
		Staging:           store,
		RateLimit:         cfg.RateLimit,
		RateLimiter:       rateLimiter,
		Engines:           engines,
		Logger:            logger,
		startedAt:         time.Now(),
	}
}

// APIKeySet is the set of accepted API keys. Vault rotation replaces it
// while requests are being served.
type APIKeySet struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewAPIKeySet builds a set from keys, skipping blanks
func NewAPIKeySet(keys []string) *APIKeySet {
	s := &APIKeySet{}
	s.Replace(keys)
	return s
}

// Replace swaps in a new list of keys
func (s *APIKeySet) Replace(keys []string) {
	// Convert API keys slice to map for O(1) lookup
	m := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			m[key] = true
		}
	}
	s.mu.Lock()
	s.keys = m
	s.mu.Unlock()
}

// Contains reports whether key is accepted
func (s *APIKeySet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key]
}

// Len returns the number of accepted keys
func (s *APIKeySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// observability returns the manager set up by Start, or an inert one
func (s *Server) observability() *observability.ObservabilityManager {
	if s.om == nil {
		om, _ := observability.NewObservabilityManager(observability.ObservabilityConfig{}, nil, s.Logger)
		s.om = om
	}
	return s.om
}
