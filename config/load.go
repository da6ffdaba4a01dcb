package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/Blanqui04/capstat/errors"
)

// Load reads the capstat configuration using Viper. Configuration is read
// from capstat.toml in the working directory, overridden by CAPSTAT_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CAPSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	v.SetConfigName("capstat")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine: defaults plus env vars apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	return LoadWithViper(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	applySourceDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants the unmarshal cannot express.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return errors.New("source with empty id")
		}
		if src.Table == "" {
			return errors.Newf("source %q has no table", src.ID)
		}
		if _, dup := seen[src.ID]; dup {
			return errors.Newf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	if c.Extrapolation.TargetPValue < 0 || c.Extrapolation.TargetPValue > 1 {
		return errors.Newf("extrapolation.target_p_value %v outside [0,1]", c.Extrapolation.TargetPValue)
	}
	if c.Extrapolation.MaxAttempts < 1 {
		return errors.New("extrapolation.max_attempts must be at least 1")
	}
	return nil
}
