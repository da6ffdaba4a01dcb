// Package aggregate collects measurement rows from heterogeneous
// per-machine tables and merges them into one time-ordered, deduplicated
// record set. Each machine names its columns differently; a source maps
// the fixed logical schema onto the machine's physical columns so the
// rest of the engine never sees machine-specific names.
package aggregate

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Blanqui04/capstat/config"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/logger"
	"github.com/Blanqui04/capstat/measure"
)

// Logical column names of the measurement schema. Source configuration
// maps these onto each machine's physical columns.
const (
	colClient      = "client"
	colReference   = "reference"
	colLot         = "lot"
	colElement     = "element"
	colDatum       = "datum"
	colProperty    = "property"
	colCavity      = "cavity"
	colValue       = "value"
	colTimestamp   = "timestamp"
	colNominal     = "nominal"
	colTolNegative = "tol_negative"
	colTolPositive = "tol_positive"
)

// retryBackoff separates the single retry from the failed attempt.
const retryBackoff = 200 * time.Millisecond

// Source reads one machine's measurement table. Queries are rate limited
// and bounded by a per-query timeout so one slow machine cannot stall a
// study.
type Source struct {
	id      string
	table   string
	columns map[string]string
	db      *sql.DB
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewSource builds a source from its configuration. Zero timeout and
// rate values fall back to the configuration defaults.
func NewSource(db *sql.DB, cfg config.SourceConfig, log *zap.SugaredLogger) *Source {
	if log == nil {
		log = logger.Logger
	}
	timeout := time.Duration(cfg.QueryTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	qps := cfg.MaxQueriesPerSec
	if qps <= 0 {
		qps = 50
	}
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return &Source{
		id:      cfg.ID,
		table:   cfg.Table,
		columns: cfg.Columns,
		db:      db,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
		timeout: timeout,
		log:     log,
	}
}

// ID returns the source identifier used in records and error reports.
func (s *Source) ID() string { return s.id }

// col resolves a logical column to the machine's physical name. Logical
// names absent from the mapping are used verbatim.
func (s *Source) col(logical string) string {
	if phys, ok := s.columns[logical]; ok && phys != "" {
		return phys
	}
	return logical
}

func (s *Source) selectColumns() []string {
	return []string{
		s.col(colClient), s.col(colReference), s.col(colLot),
		s.col(colElement), s.col(colDatum), s.col(colProperty), s.col(colCavity),
		s.col(colValue), s.col(colTimestamp),
		s.col(colNominal), s.col(colTolNegative), s.col(colTolPositive),
	}
}

func (s *Source) buildQuery(f Filter) (string, []any) {
	qb := &queryBuilder{}
	qb.addClause(s.col(colClient)+" = ?", f.Client)
	qb.addContainsClause(s.col(colReference), f.Reference)
	if f.Lot != "" {
		qb.addContainsClause(s.col(colLot), f.Lot)
	}
	if f.Element != "" {
		qb.addClause(s.col(colElement)+" = ?", f.Element)
	}
	if f.Datum != "" {
		qb.addClause(s.col(colDatum)+" = ?", f.Datum)
	}
	if f.Property != "" {
		qb.addClause(s.col(colProperty)+" = ?", f.Property)
	}
	if f.Cavity != "" {
		qb.addClause(s.col(colCavity)+" = ?", f.Cavity)
	}
	query := "SELECT " + strings.Join(s.selectColumns(), ", ") +
		" FROM " + s.table +
		" WHERE " + qb.build() +
		" ORDER BY " + s.col(colTimestamp) + " ASC"
	return query, qb.args
}

// fetch runs one query attempt under the source's timeout and rate limit.
func (s *Source) fetch(ctx context.Context, f Filter) ([]measure.MeasurementRecord, map[measure.ElementKey]measure.ToleranceSpec, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.Wrapf(err, "source %s: rate limit wait", s.id)
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := s.buildQuery(f)
	start := time.Now()
	rows, err := s.db.QueryContext(qctx, query, args...)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "source %s: query %s", s.id, s.table)
	}
	defer rows.Close()

	var records []measure.MeasurementRecord
	tols := make(map[measure.ElementKey]measure.ToleranceSpec)
	for rows.Next() {
		var (
			client, reference, lot, element sql.NullString
			datum, property, cavity         sql.NullString
			rawValue                        sql.NullString
			ts                              sql.NullTime
			nominal, tolNeg, tolPos         sql.NullFloat64
		)
		if err := rows.Scan(&client, &reference, &lot, &element,
			&datum, &property, &cavity,
			&rawValue, &ts,
			&nominal, &tolNeg, &tolPos); err != nil {
			return nil, nil, errors.Wrapf(err, "source %s: scan", s.id)
		}

		key := measure.ElementKey{
			Client:    client.String,
			Reference: reference.String,
			Lot:       lot.String,
			Element:   element.String,
			Datum:     datum.String,
			Property:  property.String,
			Cavity:    cavity.String,
		}
		records = append(records, measure.NewRecord(key, ts.Time, s.id, rawValue.String))

		nk := key.Normalized()
		if _, seen := tols[nk]; !seen && nominal.Valid {
			tols[nk] = measure.ToleranceSpec{
				Nominal:     nominal.Float64,
				TolNegative: tolNeg.Float64,
				TolPositive: tolPos.Float64,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "source %s: iterate", s.id)
	}

	s.log.Debugw("source query complete",
		logger.FieldSource, s.id,
		logger.FieldCount, len(records),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return records, tols, nil
}

// fetchWithRetry retries a failed query once before reporting the source
// as failed. Cancellation is never retried.
func (s *Source) fetchWithRetry(ctx context.Context, f Filter) ([]measure.MeasurementRecord, map[measure.ElementKey]measure.ToleranceSpec, error) {
	records, tols, err := s.fetch(ctx, f)
	if err == nil || ctx.Err() != nil {
		return records, tols, err
	}

	s.log.Warnw("source query failed, retrying once",
		logger.FieldSource, s.id,
		logger.FieldError, err,
	)
	select {
	case <-ctx.Done():
		return nil, nil, errors.Wrapf(ctx.Err(), "source %s", s.id)
	case <-time.After(retryBackoff):
	}
	return s.fetch(ctx, f)
}

// listElements returns the distinct element descriptors for a client and
// reference, with their row counts.
func (s *Source) listElements(ctx context.Context, client, reference string) ([]ElementInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "source %s: rate limit wait", s.id)
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	qb := &queryBuilder{}
	qb.addClause(s.col(colClient)+" = ?", client)
	qb.addContainsClause(s.col(colReference), reference)

	element, datum, property := s.col(colElement), s.col(colDatum), s.col(colProperty)
	query := "SELECT " + element + ", " + datum + ", " + property + ", COUNT(*)" +
		" FROM " + s.table +
		" WHERE " + qb.build() + " AND " + element + " != ''" +
		" GROUP BY " + element + ", " + datum + ", " + property +
		" ORDER BY " + element
	rows, err := s.db.QueryContext(qctx, query, qb.args...)
	if err != nil {
		return nil, errors.Wrapf(err, "source %s: list elements", s.id)
	}
	defer rows.Close()

	var infos []ElementInfo
	for rows.Next() {
		var info ElementInfo
		var datum, property sql.NullString
		if err := rows.Scan(&info.Element, &datum, &property, &info.Count); err != nil {
			return nil, errors.Wrapf(err, "source %s: scan", s.id)
		}
		info.Datum = datum.String
		info.Property = property.String
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// listLots returns the distinct lots for a client and reference, with
// row counts and first/last measurement timestamps.
func (s *Source) listLots(ctx context.Context, client, reference string) ([]LotInfo, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "source %s: rate limit wait", s.id)
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	qb := &queryBuilder{}
	qb.addClause(s.col(colClient)+" = ?", client)
	qb.addContainsClause(s.col(colReference), reference)

	lot, ts := s.col(colLot), s.col(colTimestamp)
	query := "SELECT " + lot + ", COUNT(*), MIN(" + ts + "), MAX(" + ts + ")" +
		" FROM " + s.table +
		" WHERE " + qb.build() + " AND " + lot + " != ''" +
		" GROUP BY " + lot + " ORDER BY " + lot
	rows, err := s.db.QueryContext(qctx, query, qb.args...)
	if err != nil {
		return nil, errors.Wrapf(err, "source %s: list lots", s.id)
	}
	defer rows.Close()

	var infos []LotInfo
	for rows.Next() {
		var info LotInfo
		var first, last any
		if err := rows.Scan(&info.Lot, &info.Count, &first, &last); err != nil {
			return nil, errors.Wrapf(err, "source %s: scan", s.id)
		}
		// MIN/MAX strip the column's declared type, so the driver hands
		// the stored text back instead of a time.Time
		info.First = scanTime(first)
		info.Last = scanTime(last)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTimestamp(string(t))
	case string:
		return parseTimestamp(t)
	}
	return time.Time{}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
