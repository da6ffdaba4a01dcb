package config

// Config represents the core capstat configuration
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Sources       []SourceConfig      `mapstructure:"sources"`
	Study         StudyConfig         `mapstructure:"study"`
	Extrapolation ExtrapolationConfig `mapstructure:"extrapolation"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// DatabaseConfig configures the SQLite database holding the per-machine
// measurement tables
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SourceConfig describes one measuring machine's table. Column names vary
// per machine; Columns maps the fixed logical schema (client, reference,
// lot, element, datum, property, cavity, value, timestamp, nominal,
// tol_negative, tol_positive) to the machine's actual column names.
// Logical names absent from the map are used verbatim.
type SourceConfig struct {
	ID                  string            `mapstructure:"id"`
	Table               string            `mapstructure:"table"`
	Columns             map[string]string `mapstructure:"columns"`
	QueryTimeoutSeconds int               `mapstructure:"query_timeout_seconds"` // per-query timeout (default: 10)
	MaxQueriesPerSec    float64           `mapstructure:"max_queries_per_sec"`   // rate limit per source (default: 50)
}

// StudyConfig configures capability study runs
type StudyConfig struct {
	MinSampleSize int `mapstructure:"min_sample_size"` // minimum n for normality analysis (default: 5)
	Workers       int `mapstructure:"workers"`         // concurrent element workers; 0 = one per source
}

// ExtrapolationConfig configures synthetic sample extension
type ExtrapolationConfig struct {
	TargetPValue     float64 `mapstructure:"target_p_value"`     // normality acceptance threshold (default: 0.05)
	MaxAttempts      int     `mapstructure:"max_attempts"`       // retry budget (default: 100)
	TargetSampleSize int     `mapstructure:"target_sample_size"` // combined real+synthetic size (default: 50)
}

// LoggingConfig configures log output
type LoggingConfig struct {
	JSON bool `mapstructure:"json"`
}
