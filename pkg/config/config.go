// Package config loads strata settings from defaults, an optional YAML
// file and STRATA_* environment variables using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// STRATA_DECOMPOSE_TOLERANCE_MM.
const EnvPrefix = "STRATA"

// Config is the full configuration.
type Config struct {
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Types     TypesConfig     `mapstructure:"types"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// DecomposeConfig holds the geometric tolerances, in millimetres.
type DecomposeConfig struct {
	ToleranceMM    float64 `mapstructure:"tolerance_mm"`
	NegligibleMM   float64 `mapstructure:"negligible_mm"`
	MinLengthMM    float64 `mapstructure:"min_length_mm"`
	ExtendMarginMM float64 `mapstructure:"extend_margin_mm"`
}

// TypesConfig controls generated type names and templates.
type TypesConfig struct {
	Prefix       string `mapstructure:"prefix"`
	TemplateKind string `mapstructure:"template_kind"`
}

// StoreConfig selects the model store used when a model file does not
// imply one.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File receives JSON log lines; empty means stderr.
	File string `mapstructure:"file"`
}

// EngineConfig controls evaluation of Lisp model files.
type EngineConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Decompose: DecomposeConfig{
			ToleranceMM:    500,
			NegligibleMM:   1,
			MinLengthMM:    50,
			ExtendMarginMM: 1000,
		},
		Types: TypesConfig{
			Prefix:       "Strata",
			TemplateKind: "basic",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// SetDefaults registers the built-in values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("decompose.tolerance_mm", defaults.Decompose.ToleranceMM)
	v.SetDefault("decompose.negligible_mm", defaults.Decompose.NegligibleMM)
	v.SetDefault("decompose.min_length_mm", defaults.Decompose.MinLengthMM)
	v.SetDefault("decompose.extend_margin_mm", defaults.Decompose.ExtendMarginMM)

	v.SetDefault("types.prefix", defaults.Types.Prefix)
	v.SetDefault("types.template_kind", defaults.Types.TemplateKind)

	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.path", defaults.Store.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("engine.timeout", defaults.Engine.Timeout)
}

// New returns a viper instance with defaults and environment overrides
// wired. If path is empty the user config file is read when it exists.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(ConfigFile()); err != nil {
			return v, nil
		}
		path = ConfigFile()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "strata")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".strata"
	}
	return filepath.Join(home, ".config", "strata")
}

// ConfigFile returns the path to the user config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
