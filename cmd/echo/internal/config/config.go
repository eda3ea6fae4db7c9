// Package config handles loading and validation of the echo demo's
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is the default location for the demo's configuration
// file.
const DefaultConfigPath = "./echo.yaml"

// Config holds all configuration for the echo demo binary.
type Config struct {
	// ListenAddr is the host:port the Engine.IO server listens on.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// DebugAddr is the host:port the admin/debug HTTP surface listens on.
	DebugAddr string `mapstructure:"debug_addr" yaml:"debug_addr"`

	// PingInterval is the heartbeat interval, in milliseconds.
	PingInterval int64 `mapstructure:"ping_interval" yaml:"ping_interval"`

	// PingTimeout is the heartbeat grace period, in milliseconds.
	PingTimeout int64 `mapstructure:"ping_timeout" yaml:"ping_timeout"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Load reads configuration from the given file path, falling back to the
// default path if configPath is empty. Environment variables override file
// values.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("debug_addr", ":3001")
	v.SetDefault("ping_interval", 25000)
	v.SetDefault("ping_timeout", 20000)
	v.SetDefault("log_level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(DefaultConfigPath)
	}

	v.SetEnvPrefix("ECHO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			// Config file not found; rely on env vars and defaults.
		} else if os.IsNotExist(err) {
			// Same, for any other error that os reports as not-exist.
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are present and
// well-formed.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive")
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("ping_timeout must be positive")
	}
	return nil
}
