package db

import (
	"database/sql"
	"fmt"

	"github.com/Blanqui04/capstat/errors"
)

// measurementTableDDL is the canonical shape of a per-machine measurement
// table. The measured value column is TEXT: machines export free-text
// tokens (decimal comma, decimal point, bare integers, garbage) and the
// aggregator owns the locale-aware parse.
const measurementTableDDL = `
CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	client TEXT NOT NULL,
	id_referencia_client TEXT NOT NULL,
	id_lot TEXT,
	element TEXT,
	datum TEXT,
	property TEXT,
	cavitat TEXT,
	actual TEXT,
	nominal REAL,
	tolerancia_negativa REAL,
	tolerancia_positiva REAL,
	data_hora DATETIME NOT NULL
)`

// EnsureMeasurementTable creates a measurement table with the canonical
// column names if it does not exist. Machines with diverging column names
// keep their own DDL; their shape is reconciled through the per-source
// column map, never through ALTERs here.
func EnsureMeasurementTable(db *sql.DB, table string) error {
	if _, err := db.Exec(fmt.Sprintf(measurementTableDDL, table)); err != nil {
		return errors.Wrapf(err, "failed to create measurement table %s", table)
	}
	if _, err := db.Exec(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_lookup ON %s (client, id_referencia_client, element)",
		table, table)); err != nil {
		return errors.Wrapf(err, "failed to index measurement table %s", table)
	}
	return nil
}
