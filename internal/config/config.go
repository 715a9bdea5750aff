package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Receipt extraction
	GeminiAPIKey        string
	GeminiModel         string
	GeminiEndpoint      string
	ExtractionTimeout   time.Duration
	ExtractionCacheSize int
	ExtractionCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Where the CLI writes exports
	ExportDir string

	// File the values above were overlaid from, if any
	File string
}

// fileConfig is the TOML layout of EXPENSY_CONFIG. Durations are strings
// ("30s", "1h").
type fileConfig struct {
	Port    string `toml:"port"`
	Storage struct {
		Backend    string `toml:"backend"`
		SQLitePath string `toml:"sqlite_path"`
	} `toml:"storage"`
	Extraction struct {
		APIKey    string `toml:"api_key"`
		Model     string `toml:"model"`
		Endpoint  string `toml:"endpoint"`
		Timeout   string `toml:"timeout"`
		CacheSize int    `toml:"cache_size"`
		CacheTTL  string `toml:"cache_ttl"`
	} `toml:"extraction"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	ExportDir string `toml:"export_dir"`
}

var validBackends = []string{"memory", "sqlite"}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                "8081",
		DataBackend:         "sqlite",
		SQLiteDBPath:        "./data/expensy.db",
		GeminiModel:         "gemini-2.5-flash",
		ExtractionTimeout:   30 * time.Second,
		ExtractionCacheSize: 128,
		ExtractionCacheTTL:  time.Hour,
		LogLevel:            "info",
		LogFormat:           "text",
		ExportDir:           ".",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// EXPENSY_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("EXPENSY_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", cfg.GeminiAPIKey))
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiEndpoint = getEnv("GEMINI_ENDPOINT", cfg.GeminiEndpoint)
	cfg.ExtractionTimeout = getEnvDuration("EXTRACTION_TIMEOUT", cfg.ExtractionTimeout)
	cfg.ExtractionCacheSize = getEnvInt("EXTRACTION_CACHE_SIZE", cfg.ExtractionCacheSize)
	cfg.ExtractionCacheTTL = getEnvDuration("EXTRACTION_CACHE_TTL", cfg.ExtractionCacheTTL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ExportDir = getEnv("EXPORT_DIR", cfg.ExportDir)
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	setString(&c.Port, fc.Port)
	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.GeminiAPIKey, fc.Extraction.APIKey)
	setString(&c.GeminiModel, fc.Extraction.Model)
	setString(&c.GeminiEndpoint, fc.Extraction.Endpoint)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.ExportDir, fc.ExportDir)
	if fc.Extraction.CacheSize != 0 {
		c.ExtractionCacheSize = fc.Extraction.CacheSize
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&c.ExtractionTimeout, fc.Extraction.Timeout, "extraction.timeout"},
		{&c.ExtractionCacheTTL, fc.Extraction.CacheTTL, "extraction.cache_ttl"},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}
	c.File = path
	return nil
}

// ExtractionEnabled reports whether an API key is configured.
func (c *Config) ExtractionEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.ExtractionTimeout < time.Second || c.ExtractionTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid extraction timeout %v: must be between 1s and 5m", c.ExtractionTimeout))
	}
	if c.ExtractionCacheSize < 1 || c.ExtractionCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid extraction cache size %d: must be between 1 and 10000", c.ExtractionCacheSize))
	}
	if c.ExtractionCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid extraction cache TTL %v: must be at least 1 second", c.ExtractionCacheTTL))
	}
	if c.ExtractionEnabled() && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when an API key is set")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
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
