// Package commands implements the capstat CLI commands.
package commands

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/Blanqui04/capstat/aggregate"
	"github.com/Blanqui04/capstat/config"
	"github.com/Blanqui04/capstat/db"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/logger"
)

// ConfigPath is the --config flag value; empty falls back to the default
// search path.
var ConfigPath string

// LoadConfig loads the configuration honoring the --config flag.
func LoadConfig() (*config.Config, error) {
	if ConfigPath != "" {
		return config.LoadFromFile(ConfigPath)
	}
	return config.Load()
}

// openAggregator opens the measurement database and builds the
// aggregator over every configured source. The caller owns the returned
// connection.
func openAggregator(cfg *config.Config, log *zap.SugaredLogger) (*sql.DB, *aggregate.Aggregator, error) {
	if len(cfg.Sources) == 0 {
		return nil, nil, errors.Wrap(errors.ErrSourceUnavailable, "no sources configured")
	}

	conn, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open measurement database")
	}

	sources := make([]*aggregate.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		sources = append(sources, aggregate.NewSource(conn, sc, log))
	}
	return conn, aggregate.NewAggregator(sources, log), nil
}

func cliLogger() *zap.SugaredLogger {
	return logger.Logger
}
