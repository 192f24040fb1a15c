package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIBaseURL = "http://localhost:8084/api"
	DefaultPort       = "8085"
	DefaultSQLitePath = "./data/pfm.db"
)

type Config struct {
	// Remote finance API
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration // zero disables the client timeout
	APIBackend string        // http or memory

	// Web surface
	Port             string
	SessionCacheSize int
	SessionTTL       time.Duration

	// Terminal surface snapshot store
	SQLiteDBPath string

	// AMQP mutation events (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string // prefix of each consumer's own queue

	LogLevel string
}

// fileConfig mirrors the optional TOML file named by PFM_CONFIG.
type fileConfig struct {
	API struct {
		BaseURL string `toml:"base_url"`
		Token   string `toml:"token"`
		Timeout string `toml:"timeout"`
		Backend string `toml:"backend"`
	} `toml:"api"`
	Web struct {
		Port             string `toml:"port"`
		SessionCacheSize int    `toml:"session_cache_size"`
		SessionTTL       string `toml:"session_ttl"`
	} `toml:"web"`
	Storage struct {
		SQLiteDBPath string `toml:"sqlite_db_path"`
	} `toml:"storage"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load builds the configuration from defaults, the optional TOML file named
// by PFM_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	var fc fileConfig
	if path := strings.TrimSpace(os.Getenv("PFM_CONFIG")); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	baseURL := firstNonEmpty(os.Getenv("API_BASE_URL"), os.Getenv("EXPO_PUBLIC_API_URL"), fc.API.BaseURL, DefaultAPIBaseURL)

	cfg := &Config{
		APIBaseURL: strings.TrimRight(baseURL, "/"),
		APIToken:   getEnv("API_TOKEN", fc.API.Token),
		APITimeout: getEnvDuration("API_TIMEOUT", parseDuration(fc.API.Timeout, 0)),
		APIBackend: getEnv("API_BACKEND", firstNonEmpty(fc.API.Backend, "http")),

		Port:             getEnv("PORT", firstNonEmpty(fc.Web.Port, DefaultPort)),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", nonZero(fc.Web.SessionCacheSize, 256)),
		SessionTTL:       getEnvDuration("SESSION_TTL", parseDuration(fc.Web.SessionTTL, 30*time.Minute)),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", firstNonEmpty(fc.Storage.SQLiteDBPath, DefaultSQLitePath)),

		AMQPURL:      getEnv("AMQP_URL", fc.AMQP.URL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", firstNonEmpty(fc.AMQP.Exchange, "pfm")),
		AMQPQueue:    getEnv("AMQP_QUEUE", firstNonEmpty(fc.AMQP.Queue, "pfm_mutations")),

		LogLevel: getEnv("LOG_LEVEL", firstNonEmpty(fc.Log.Level, "info")),
	}

	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API base URL
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': missing host", c.APIBaseURL))
	}

	validBackends := []string{"http", "memory"}
	if !slices.Contains(validBackends, c.APIBackend) {
		errors = append(errors, fmt.Sprintf("invalid API backend '%s': must be one of %v", c.APIBackend, validBackends))
	}

	if c.APITimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must not be negative", c.APITimeout))
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				errors = append(errors, fmt.Sprintf("SQLite database directory '%s' is not a directory", dir))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonZero(v, defaultValue int) int {
	if v != 0 {
		return v
	}
	return defaultValue
}
