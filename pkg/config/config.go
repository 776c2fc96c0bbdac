// Package config provides configuration management for heapwalker.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/heapwalker/pkg/filter"
	"github.com/heapwalker/pkg/pprof"
)

// Config holds all configuration for the application.
type Config struct {
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Pprof    pprof.Config   `mapstructure:"pprof"`
}

// ViewerConfig controls how dynamic object fields are listed.
type ViewerConfig struct {
	ViewPrefix      string `mapstructure:"view_prefix"`
	PageSize        int    `mapstructure:"page_size"`
	// MaxPageSize bounds the page size a request may ask for.
	MaxPageSize     int    `mapstructure:"max_page_size"`
	IncludeInstance bool   `mapstructure:"include_instance"`
	IncludeStatic   bool   `mapstructure:"include_static"`
	// DynamicObjectTypes are the base classes that mark a dynamic object.
	DynamicObjectTypes []string `mapstructure:"dynamic_object_types"`
	// WrapperTypes are boxed scalar and string types shown as plain references.
	WrapperTypes  []string      `mapstructure:"wrapper_types"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	HeapCacheSize int           `mapstructure:"heap_cache_size"`
}

// StorageConfig holds snapshot storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"` // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"`
}

// DatabaseConfig holds the snapshot catalog database configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Path     string `mapstructure:"path"` // sqlite file
	MaxConns int    `mapstructure:"max_conns"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty logs to stdout
}

// Load reads configuration from configPath, or from config.yaml in the
// standard locations when configPath is empty. A missing file is not an error.
// Environment variables prefixed with HEAPWALKER_ override file values,
// e.g. HEAPWALKER_VIEWER_PAGE_SIZE.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/heapwalker")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// defaults always validate
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("HEAPWALKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Viewer defaults
	v.SetDefault("viewer.view_prefix", "ruby_")
	v.SetDefault("viewer.page_size", 1000)
	v.SetDefault("viewer.max_page_size", 10000)
	v.SetDefault("viewer.include_instance", true)
	v.SetDefault("viewer.include_static", true)
	v.SetDefault("viewer.dynamic_object_types", filter.DefaultDynamicObjectTypes)
	v.SetDefault("viewer.wrapper_types", filter.DefaultWrapperTypes)
	v.SetDefault("viewer.session_ttl", "30m")
	v.SetDefault("viewer.max_sessions", 256)
	v.SetDefault("viewer.heap_cache_size", 3)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./snapshots")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.domain", "myqcloud.com")

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./heapwalker.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")

	// Profiling defaults
	pprofDefaults := pprof.DefaultConfig()
	v.SetDefault("pprof.enabled", false)
	v.SetDefault("pprof.addr", pprofDefaults.Addr)
	v.SetDefault("pprof.path", pprofDefaults.Path)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Viewer.PageSize < 1 {
		return fmt.Errorf("viewer page size must be at least 1")
	}
	if c.Viewer.MaxPageSize < c.Viewer.PageSize {
		return fmt.Errorf("viewer max page size must be at least the page size")
	}
	if c.Viewer.MaxSessions < 1 {
		return fmt.Errorf("viewer max sessions must be at least 1")
	}
	if c.Viewer.SessionTTL <= 0 {
		return fmt.Errorf("viewer session ttl must be positive")
	}
	if len(c.Viewer.DynamicObjectTypes) == 0 {
		return fmt.Errorf("at least one dynamic object type is required")
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if err := c.Pprof.Validate(); err != nil {
		return err
	}

	// Storage config validation is delegated to the storage package.
	return nil
}
