package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the factdex configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Backend     BackendConfig     `yaml:"backend"`
	Cache       CacheConfig       `yaml:"cache"`
	RemoteCache RemoteCacheConfig `yaml:"remote_cache"`
	Scroll      ScrollConfig      `yaml:"scroll"`
	Bulk        BulkConfig        `yaml:"bulk"`
	MLP         MLPConfig         `yaml:"mlp"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys      []string `yaml:"api_keys"`
	// ReadOnlyKeys may search and count but not delete or manage indices.
	ReadOnlyKeys []string `yaml:"read_only_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig holds search backend connection settings.
type BackendConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Compress   bool   `yaml:"compress"`
	// DateFormat is a Go time layout for extreme dates.
	DateFormat string `yaml:"date_format"`
}

// CacheConfig holds the in-process fact cache settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// RemoteCacheConfig holds the shared Redis/Valkey fact cache settings.
type RemoteCacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ScrollConfig holds cursor settings.
type ScrollConfig struct {
	TTL string `yaml:"ttl"` // backend duration, e.g. 3m
}

// BulkConfig holds cursor-driven bulk settings.
type BulkConfig struct {
	PageSize       int     `yaml:"page_size"`
	MaxPagesPerSec float64 `yaml:"max_pages_per_sec"` // 0 = unthrottled
}

// MLPConfig holds the annotation task service settings.
type MLPConfig struct {
	URL             string `yaml:"url"`
	Type            string `yaml:"type"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
	MaxFailures     int    `yaml:"max_failures"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 30
	}
	if c.Backend.DateFormat == "" {
		c.Backend.DateFormat = "2006-01-02"
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.RemoteCache.TTLSec <= 0 {
		c.RemoteCache.TTLSec = 3600
	}
	if c.RemoteCache.ReadinessTimeout <= 0 {
		c.RemoteCache.ReadinessTimeout = 10
	}
	if c.Scroll.TTL == "" {
		c.Scroll.TTL = "3m"
	}
	if c.Bulk.PageSize <= 0 {
		c.Bulk.PageSize = 100
	}
	if c.MLP.Type == "" {
		c.MLP.Type = "mlp"
	}
	if c.MLP.PollIntervalSec <= 0 {
		c.MLP.PollIntervalSec = 10
	}
	if c.MLP.MaxFailures <= 0 {
		c.MLP.MaxFailures = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !scrollTTLRegex.MatchString(c.Scroll.TTL) {
		return fmt.Errorf("scroll.ttl must be a backend duration like 90s or 3m, got %q", c.Scroll.TTL)
	}
	if c.RemoteCache.Enabled && len(c.RemoteCache.Addrs) == 0 {
		return fmt.Errorf("remote_cache.addrs is required when remote_cache.enabled is true")
	}
	if c.Bulk.MaxPagesPerSec < 0 {
		return fmt.Errorf("bulk.max_pages_per_sec must not be negative, got %g", c.Bulk.MaxPagesPerSec)
	}
	return nil
}

var scrollTTLRegex = regexp.MustCompile(`^[1-9][0-9]*(ms|s|m|h|d)$`)

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
