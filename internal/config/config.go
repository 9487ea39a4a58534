package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"resumatch/internal/keywords"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMATCH_SERVER_APIKEYS, etc., also read from .env)
// 4. Default values - Lowest priority
type Config struct {
	Matching      MatchingConfig      `mapstructure:"matching"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// MatchingConfig holds keyword extraction and scoring settings
type MatchingConfig struct {
	LexiconFile              string        `mapstructure:"lexiconFile"`       // YAML/JSON lexicon or skills catalog
	StopwordsMode            string        `mapstructure:"stopwordsMode"`     // extend, replace
	RestrictToLexicon        bool          `mapstructure:"restrictToLexicon"` // only extract catalog skills
	WatchLexicon             bool          `mapstructure:"watchLexicon"`      // reload the lexicon file on change
	WatchDebounce            time.Duration `mapstructure:"watchDebounce"`
	FuzzyThreshold           int           `mapstructure:"fuzzyThreshold"` // 0 = exact matches only
	FuzzyMinLength           int           `mapstructure:"fuzzyMinLength"`
	MinTokenLength           int           `mapstructure:"minTokenLength"`
	PhraseWeight             float64       `mapstructure:"phraseWeight"`
	RetainPhraseConstituents bool          `mapstructure:"retainPhraseConstituents"`
	Stemming                 bool          `mapstructure:"stemming"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Min requests before checking failure ratio
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio to trip circuit (0.0-1.0)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxRequestSize  int64         `mapstructure:"maxRequestSize"` // JSON body limit

	// API Authentication
	APIKeys        []string             `mapstructure:"apiKeys"` // Valid API keys for authentication
	APIKeyRotation APIKeyRotationConfig `mapstructure:"apiKeyRotation"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// APIKeyRotationConfig controls polling Vault for rotated API keys
type APIKeyRotationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"` // local files read by the CLI
}

// UploadConfig holds document upload validation settings
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"maxFileSize"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
}

// StorageConfig holds staging storage for uploaded documents
type StorageConfig struct {
	Backend        string               `mapstructure:"backend"` // none, local, s3
	LocalDir       string               `mapstructure:"localDir"`
	KeepStaged     bool                 `mapstructure:"keepStaged"`
	S3             S3Config             `mapstructure:"s3"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// S3Config holds S3 (or S3-compatible, e.g. R2/MinIO) settings
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	UsePathStyle    bool   `mapstructure:"usePathStyle"`
}

// QueueConfig holds AMQP worker settings
type QueueConfig struct {
	URL         string `mapstructure:"url"`
	Queue       string `mapstructure:"queue"`
	ResultQueue string `mapstructure:"resultQueue"`
	Workers     int    `mapstructure:"workers"`
	Prefetch    int    `mapstructure:"prefetch"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	MatchOperations MatchOperationsMetricsConfig `mapstructure:"matchOperations"`
	BusinessMetrics BusinessMetricsConfig        `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig  `mapstructure:"infrastructure"`
}

// MatchOperationsMetricsConfig holds match operation metrics configuration
type MatchOperationsMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
	TrackScores   bool `mapstructure:"trackScores"`
	TrackKeywords bool `mapstructure:"trackKeywords"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	TrackRateLimits     bool `mapstructure:"trackRateLimits"`
	TrackLexiconReloads bool `mapstructure:"trackLexiconReloads"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Supported storage backends
const (
	StorageBackendNone  = "none"
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// FlagBinding maps a command line flag onto a config key
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// LoadConfig loads configuration from defaults, an optional .env file,
// environment variables, a config file and bound command line flags. A
// non-empty configFile skips the search paths.
func LoadConfig(configFile string, flags ...FlagBinding) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	// Set default values
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		log.Println("[CONFIG] Loaded environment variables from .env")
	}

	// Set up environment variable handling
	v.SetEnvPrefix("RESUMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMATCH'")

	for _, b := range flags {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", b.Flag.Name, err)
		}
	}
	if len(flags) > 0 {
		log.Printf("[CONFIG] Bound %d command line flags", len(flags))
	}

	// Set up config file handling
	if configFile != "" {
		v.SetConfigFile(configFile)
		log.Printf("[CONFIG] Using explicit config file: %s", configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumatch/")
		v.AddConfigPath("$HOME/.resumatch")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/resumatch/, $HOME/.resumatch, .")
	}

	// Read the config file
	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	// Unmarshal the configuration into the Config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}

	switch c.Matching.StopwordsMode {
	case "extend", "replace":
	default:
		return fmt.Errorf("invalid stopwords mode: %s (use extend or replace)", c.Matching.StopwordsMode)
	}

	if c.Matching.RestrictToLexicon && c.Matching.LexiconFile == "" {
		return fmt.Errorf("matching.restrictToLexicon requires matching.lexiconFile")
	}

	// The keyword engine reports every invalid matching setting at once
	if _, err := keywords.NewConfig(c.Matching.KeywordOptions()...); err != nil {
		return fmt.Errorf("matching configuration error: %w", err)
	}

	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}

	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue workers must be at least 1")
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendNone:
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("local storage requires storage.localDir")
		}
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 storage requires storage.s3.bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	cb := c.Storage.CircuitBreaker
	if cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failure threshold must be in (0, 1], got %g", cb.FailureThreshold)
	}
	return nil
}

// KeywordOptions maps the numeric matching settings onto keyword options.
// Lexicon content is layered on top by the lexicon package.
func (m MatchingConfig) KeywordOptions() []keywords.Option {
	return []keywords.Option{
		keywords.WithFuzzyThreshold(m.FuzzyThreshold),
		keywords.WithFuzzyMinLength(m.FuzzyMinLength),
		keywords.WithMinTokenLength(m.MinTokenLength),
		keywords.WithPhraseWeight(m.PhraseWeight),
		keywords.WithRetainPhraseConstituents(m.RetainPhraseConstituents),
		keywords.WithStemming(m.Stemming),
	}
}
