package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/tokenizer-ffi/hub"
)

// EnvFile names the environment variable holding the config file path.
const EnvFile = "TOKENIZERS_FFI_CONFIG"

// Config represents the library configuration
type Config struct {
	Hub hub.Config `yaml:"hub"`
	Log LogConfig  `yaml:"log"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level    string `yaml:"level"`    // off, debug, info, warn, error
	Encoding string `yaml:"encoding"` // console or json
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Hub: hub.Config{
			Endpoint: hub.DefaultEndpoint,
			CacheDir: hub.DefaultCacheDir(),
			Timeout:  hub.DefaultTimeout,
		},
		Log: LogConfig{
			Level:    "off",
			Encoding: "console",
		},
	}
}

// LoadConfig loads configuration from file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Hub.Timeout < 0 {
		return fmt.Errorf("hub.timeout must not be negative, got %s", c.Hub.Timeout)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "off", "none", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of off, debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.encoding %q is not one of console, json", c.Log.Encoding)
	}
	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// FromEnv loads the file named by TOKENIZERS_FFI_CONFIG, if any, and applies
// environment overrides. The returned config is always usable; a non-nil
// error reports what was ignored.
func FromEnv() (*Config, error) {
	cfg := Default()
	var loadErr error

	if path := strings.TrimSpace(os.Getenv(EnvFile)); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			loadErr = err
		} else {
			cfg = loaded
		}
	}

	if err := cfg.ApplyEnv(); err != nil && loadErr == nil {
		loadErr = err
	}
	return cfg, loadErr
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	var errs []string

	if v := os.Getenv("HF_ENDPOINT"); v != "" {
		c.Hub.Endpoint = v
	}
	if v := os.Getenv("TOKENIZERS_CACHE"); v != "" {
		c.Hub.CacheDir = v
	} else if v := os.Getenv("HF_HOME"); v != "" {
		c.Hub.CacheDir = hub.DefaultCacheDir()
	}
	if v := os.Getenv("TOKENIZERS_HUB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("TOKENIZERS_HUB_TIMEOUT=%q", v))
		} else {
			c.Hub.Timeout = d
		}
	}
	if v := os.Getenv("HF_HUB_OFFLINE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("HF_HUB_OFFLINE=%q", v))
		} else {
			c.Hub.Offline = b
		}
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		c.Hub.Token = v
	}
	if v := os.Getenv("TOKENIZERS_LOG"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TOKENIZERS_LOG_ENCODING"); v != "" {
		c.Log.Encoding = v
	}

	if len(errs) > 0 {
		return fmt.Errorf("ignored invalid environment: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Logger builds a zap logger writing to stderr. Level "off" (or empty)
// yields a no-op logger.
func (l LogConfig) Logger() (*zap.Logger, error) {
	level := strings.ToLower(strings.TrimSpace(l.Level))
	if level == "" || level == "off" || level == "none" {
		return zap.NewNop(), nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.NewNop(), fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}

	zc := zap.NewProductionConfig()
	if l.Encoding != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}
