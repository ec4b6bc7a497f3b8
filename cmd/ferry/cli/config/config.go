package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Progress modes accepted by the "progress" key.
const (
	ProgressAuto  = "auto"
	ProgressTTY   = "tty"
	ProgressPlain = "plain"
)

// Config represents the ferry CLI configuration.
// Use mapstructure tags for Viper unmarshaling.
type Config struct {
	Insecure  bool   `mapstructure:"insecure"`
	Verbose   bool   `mapstructure:"verbose"`
	Progress  string `mapstructure:"progress"`
	UserAgent string `mapstructure:"user-agent"`

	Transfer TransferConfig `mapstructure:"transfer"`
}

// TransferConfig holds settings applied to every transfer.
type TransferConfig struct {
	// ProgressStep is the minimum number of bytes between progress reports.
	ProgressStep int64 `mapstructure:"progress-step"`
}

// Default returns the configuration used when no file or environment
// variable overrides a key.
func Default() Config {
	return Config{
		Progress:  ProgressAuto,
		UserAgent: "ferry-cli",
		Transfer: TransferConfig{
			ProgressStep: 32 << 10,
		},
	}
}

// SetDefaults registers Default with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("insecure", d.Insecure)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("user-agent", d.UserAgent)
	v.SetDefault("transfer.progress-step", d.Transfer.ProgressStep)
}

// Load unmarshals the effective settings of v and validates them.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	switch c.Progress {
	case ProgressAuto, ProgressTTY, ProgressPlain:
	default:
		return fmt.Errorf("invalid progress mode %q (expected auto, tty, or plain)", c.Progress)
	}
	if c.Transfer.ProgressStep < 0 {
		return fmt.Errorf("invalid transfer.progress-step %d: must not be negative", c.Transfer.ProgressStep)
	}
	return nil
}
