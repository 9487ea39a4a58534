package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyStorageFallbacks()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMATCH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitList(apiKeysEnv)
		}
	}
}

// applyStorageFallbacks picks up the standard AWS credential variables
// when no S3 credentials were configured explicitly
func (c *Config) applyStorageFallbacks() {
	s3 := &c.Storage.S3
	if s3.AccessKeyID == "" && s3.SecretAccessKey == "" {
		s3.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		s3.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if s3.Region == "" {
		s3.Region = os.Getenv("AWS_REGION")
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// splitList splits a comma-separated list, trimming blanks
func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	// Log config file source
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	// Log environment variables that are set
	envVars := []string{
		"RESUMATCH_MATCHING_LEXICONFILE",
		"RESUMATCH_MATCHING_FUZZYTHRESHOLD",
		"RESUMATCH_SERVER_PORT",
		"RESUMATCH_SERVER_HOST",
		"RESUMATCH_SERVER_APIKEYS",
		"RESUMATCH_APP_LOGLEVEL",
		"RESUMATCH_STORAGE_BACKEND",
		"RESUMATCH_QUEUE_URL",
		"RESUMATCH_VAULT_ENABLED",
		"AWS_ACCESS_KEY_ID",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitive(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	// Log key configuration values (with sensitive data masked)
	log.Println("[CONFIG] === Key Configuration Values ===")
	if c.Matching.LexiconFile != "" {
		log.Printf("[CONFIG] Lexicon: %s (stopwords %s, restrict %t, watch %t)",
			c.Matching.LexiconFile, c.Matching.StopwordsMode, c.Matching.RestrictToLexicon, c.Matching.WatchLexicon)
	} else {
		log.Println("[CONFIG] Lexicon: built-in")
	}
	log.Printf("[CONFIG] Fuzzy Threshold: %d", c.Matching.FuzzyThreshold)
	log.Printf("[CONFIG] API Keys: %d configured", len(c.Server.APIKeys))
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Storage Backend: %s", c.Storage.Backend)
	log.Printf("[CONFIG] Queue: %s (%d workers)", c.Queue.Queue, c.Queue.Workers)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] =====================================")
}

func isSensitive(envVar string) bool {
	lower := strings.ToLower(envVar)
	return strings.Contains(lower, "key") || strings.Contains(lower, "url")
}
