// Package config loads the TOML configuration file and fills in defaults so
// the rest of the program never sees a half-configured value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version   int       `toml:"version"`
	Cache     Cache     `toml:"cache"`
	Providers Providers `toml:"providers"`
	DB        Database  `toml:"db"`
	MCP       MCP       `toml:"mcp"`
	Watch     Watch     `toml:"watch"`
	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Cache locates the local package cache and bounds the module cache.
type Cache struct {
	Root              string   `toml:"root"`
	RuntimePaths      []string `toml:"runtime_paths"`
	FrameworkPriority []string `toml:"framework_priority"`
	MaxOpenModules    int      `toml:"max_open_modules"`
}

type Providers struct {
	Descriptors bool `toml:"descriptors"`
	Sources     bool `toml:"sources"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type MCP struct {
	Transport     string        `toml:"transport"`
	RatePerSecond float64       `toml:"rate_per_second"`
	RateBurst     int           `toml:"rate_burst"`
	Timeout       time.Duration `toml:"timeout"`
	MaxItems      int           `toml:"max_items"`
	Operations    []string      `toml:"operations"`    // empty allows every operation
	ContractPath  string        `toml:"contract_path"` // optional OpenAPI document cross-checked at startup
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Telemetry struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Cache.Root) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Cache.Root = filepath.Join(home, ".packages")
	}
	if cfg.Cache.MaxOpenModules <= 0 {
		cfg.Cache.MaxOpenModules = 16
	}
	if len(cfg.Cache.FrameworkPriority) == 0 {
		cfg.Cache.FrameworkPriority = []string{"net9.0", "net8.0", "net7.0", "net6.0", "netstandard2.1", "netstandard2.0"}
	}

	// both providers on unless explicitly disabled by a v2+ config
	if cfg.Version <= 1 {
		cfg.Providers.Descriptors = true
		cfg.Providers.Sources = true
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "surface-history.db"
	}

	if strings.TrimSpace(cfg.MCP.Transport) == "" {
		cfg.MCP.Transport = "stdio"
	}
	if cfg.MCP.RatePerSecond <= 0 {
		cfg.MCP.RatePerSecond = 25
	}
	if cfg.MCP.RateBurst <= 0 {
		cfg.MCP.RateBurst = 50
	}
	if cfg.MCP.Timeout <= 0 {
		cfg.MCP.Timeout = 30 * time.Second
	}
	if cfg.MCP.MaxItems <= 0 {
		cfg.MCP.MaxItems = 500
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}

	if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
}

// applyEnv lets the environment override the locations that differ between
// machines without editing the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SURFACE_CACHE_ROOT"); v != "" {
		cfg.Cache.Root = v
	}
	if v := os.Getenv("SURFACE_HISTORY_DB"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("SURFACE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}
}

func validate(cfg *Config) error {
	if cfg.Version < 1 || cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}

	switch cfg.MCP.Transport {
	case "stdio", "mock":
	default:
		return fmt.Errorf("invalid mcp transport %q", cfg.MCP.Transport)
	}

	if !cfg.Providers.Descriptors && !cfg.Providers.Sources {
		return fmt.Errorf("at least one provider must be enabled")
	}
	return nil
}
