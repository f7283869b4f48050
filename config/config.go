// Package config loads the CLI's settings from defaults, an optional config
// file and INKWELL_* environment variables. The library packages never read
// it; the CLI turns it into options.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/ByLCY/inkwell/pkgstore"
	"github.com/ByLCY/inkwell/world"
)

const (
	// AppName prefixes environment variables and names the config file.
	AppName = "inkwell"
	// EnvPrefix is the prefix of environment overrides, e.g. INKWELL_PPI.
	EnvPrefix = "INKWELL"
)

// Config is the resolved CLI configuration.
type Config struct {
	LogLevel   string   `mapstructure:"log_level"`
	CacheDir   string   `mapstructure:"cache_dir"`
	DataDir    string   `mapstructure:"data_dir"`
	Registry   string   `mapstructure:"registry"`
	UserAgent  string   `mapstructure:"user_agent"`
	Retries    int      `mapstructure:"retries"`
	FontPaths  []string `mapstructure:"font_paths"`
	PPI        float64  `mapstructure:"ppi"`
	Background string   `mapstructure:"background"`
	Workers    int      `mapstructure:"workers"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:   "warn",
		Registry:   pkgstore.DefaultRegistry,
		UserAgent:  pkgstore.DefaultUserAgent,
		PPI:        world.DefaultPPI,
		Background: "#ffffff",
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// inkwell.{yaml,toml,json} is looked up in the working directory and the
// user config directory, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("registry", defaults.Registry)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("retries", defaults.Retries)
	v.SetDefault("font_paths", []string{})
	v.SetDefault("ppi", defaults.PPI)
	v.SetDefault("background", defaults.Background)
	v.SetDefault("workers", defaults.Workers)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	// a path list from the environment uses the OS list separator
	if len(cfg.FontPaths) == 1 && strings.ContainsRune(cfg.FontPaths[0], os.PathListSeparator) {
		cfg.FontPaths = filepath.SplitList(cfg.FontPaths[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.PPI <= 0 {
		errs = append(errs, fmt.Errorf("ppi must be positive, got %v", c.PPI))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	if _, err := ParseBackground(c.Background); err != nil {
		errs = append(errs, fmt.Errorf("background: %w", err))
	}
	return errors.Join(errs...)
}

// Logger builds the CLI logger at the configured level.
func (c *Config) Logger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	return log.NewWithOptions(w, log.Options{Prefix: AppName, Level: level})
}

// StoreOptions turns the package settings into pkgstore options.
func (c *Config) StoreOptions(logger *log.Logger) []pkgstore.Option {
	opts := []pkgstore.Option{
		pkgstore.WithRegistry(c.Registry),
		pkgstore.WithUserAgent(c.UserAgent),
		pkgstore.WithRetries(c.Retries),
		pkgstore.WithLogger(logger),
	}
	if c.CacheDir != "" {
		opts = append(opts, pkgstore.WithCacheDir(c.CacheDir))
	}
	if c.DataDir != "" {
		opts = append(opts, pkgstore.WithDataDir(c.DataDir))
	}
	return opts
}

// ParseBackground accepts "#rrggbb", "#rrggbbaa" or "transparent". The
// transparent background is a nil color.
func ParseBackground(s string) (color.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "transparent" || s == "none" {
		return nil, nil
	}
	hex := strings.TrimPrefix(s, "#")
	var c color.NRGBA
	switch len(hex) {
	case 6:
		c.A = 0xff
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return nil, fmt.Errorf("invalid color %q", s)
		}
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err != nil {
			return nil, fmt.Errorf("invalid color %q", s)
		}
	default:
		return nil, fmt.Errorf("invalid color %q", s)
	}
	return c, nil
}
