package config

import "github.com/spf13/viper"

// SetDefaults registers default values for all configuration keys
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "capstat.db")

	v.SetDefault("study.min_sample_size", 5)
	v.SetDefault("study.workers", 0)

	v.SetDefault("extrapolation.target_p_value", 0.05)
	v.SetDefault("extrapolation.max_attempts", 100)
	v.SetDefault("extrapolation.target_sample_size", 50)

	v.SetDefault("logging.json", false)
}

// applySourceDefaults fills zero-valued per-source settings after unmarshal;
// viper defaults cannot address slice elements.
func applySourceDefaults(cfg *Config) {
	for i := range cfg.Sources {
		if cfg.Sources[i].QueryTimeoutSeconds <= 0 {
			cfg.Sources[i].QueryTimeoutSeconds = 10
		}
		if cfg.Sources[i].MaxQueriesPerSec <= 0 {
			cfg.Sources[i].MaxQueriesPerSec = 50
		}
	}
}
