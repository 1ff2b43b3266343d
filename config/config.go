// Package config provides configuration management for an Urbis index
// using Viper, following the same layered defaults/file/env approach the
// pack's service-shaped repo uses for its own configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/urbis/urbis/diskmgr"
)

// Strategy names accepted in config files and environment variables,
// mapped to diskmgr.Strategy by Resolve.
const (
	StrategyNearestTrack = "nearest-track"
	StrategyBestFit      = "best-fit"
	StrategySequential   = "sequential"
	StrategyNewTrack     = "new-track"
)

// Config mirrors the configuration surface spec.md §6 enumerates. It can
// be built programmatically with Defaults, or loaded from a YAML/JSON/TOML
// file plus environment overrides with Load.
//
// Config is a plain value; nothing in this package or in the index core
// synchronizes access to it. Callers sharing an Index (and therefore a
// Config) across goroutines must supply their own sync.RWMutex.
type Config struct {
	BlockSize      int    `mapstructure:"block_size"`
	PageCapacity   int    `mapstructure:"page_capacity"`
	CacheSize      int    `mapstructure:"cache_size"`
	EnableQuadtree bool   `mapstructure:"enable_quadtree"`
	Persist        bool   `mapstructure:"persist"`
	DataPath       string `mapstructure:"data_path"`
	Strategy       string `mapstructure:"strategy"`
	SyncOnWrite    bool   `mapstructure:"sync_on_write"`

	// UseMmap is documented as reserved with no effect in spec.md, but
	// this implementation gives it real meaning: when set, the disk
	// manager also maps the data region with internal/mmap on Open. Page
	// reads and writes use ReadAt/WriteAt either way.
	UseMmap bool `mapstructure:"use_mmap"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig selects the logger threaded through the index and its
// subordinate components. Urbis is a library and stays silent by
// default; setting Level to anything but "" enables zap output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// Defaults returns a Config populated with spec.md §6's documented
// defaults.
func Defaults() Config {
	return Config{
		BlockSize:      1024,
		PageCapacity:   64,
		CacheSize:      128,
		EnableQuadtree: true,
		Persist:        false,
		DataPath:       "",
		Strategy:       StrategyBestFit,
		SyncOnWrite:    false,
		UseMmap:        false,
		Logging:        LoggingConfig{Level: "", Format: "json"},
	}
}

func bindDefaults(v *viper.Viper, d Config) {
	v.SetDefault("block_size", d.BlockSize)
	v.SetDefault("page_capacity", d.PageCapacity)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("enable_quadtree", d.EnableQuadtree)
	v.SetDefault("persist", d.Persist)
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("sync_on_write", d.SyncOnWrite)
	v.SetDefault("use_mmap", d.UseMmap)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads configuration from an optional file at configPath (searched
// relative to the working directory when configPath is empty) layered
// under URBIS_-prefixed environment variables, itself layered over
// Defaults. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	bindDefaults(v, Defaults())

	v.SetEnvPrefix("URBIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("urbis")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the enumerated fields for obviously invalid values.
func (c *Config) Validate() error {
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.PageCapacity <= 0 {
		return fmt.Errorf("page_capacity must be positive, got %d", c.PageCapacity)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Persist && c.DataPath == "" {
		return fmt.Errorf("persist is set but data_path is empty")
	}
	switch c.Strategy {
	case StrategyNearestTrack, StrategyBestFit, StrategySequential, StrategyNewTrack:
	default:
		return fmt.Errorf("unknown disk strategy: %q", c.Strategy)
	}
	return nil
}

// DiskStrategy resolves the string strategy name to diskmgr.Strategy.
// Validate must have already rejected unknown names.
func (c *Config) DiskStrategy() diskmgr.Strategy {
	switch c.Strategy {
	case StrategyNearestTrack:
		return diskmgr.NearestTrack
	case StrategySequential:
		return diskmgr.Sequential
	case StrategyNewTrack:
		return diskmgr.NewTrack
	default:
		return diskmgr.BestFit
	}
}

// Logger builds the *zap.Logger this config describes. An empty Level
// yields zap.NewNop(), keeping the index silent by default.
func (c *Config) Logger() *zap.Logger {
	if c.Logging.Level == "" {
		return zap.NewNop()
	}

	var zc zap.Config
	if c.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(c.Logging.Level); err == nil {
		zc.Level = lvl
	}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// DiskManagerConfig projects the fields diskmgr.Config needs out of this
// Config.
func (c *Config) DiskManagerConfig() diskmgr.Config {
	return diskmgr.Config{
		PageCapacity: c.PageCapacity,
		CacheSize:    c.CacheSize,
		Strategy:     c.DiskStrategy(),
		SyncOnWrite:  c.SyncOnWrite,
		UseMmap:      c.UseMmap,
	}
}
