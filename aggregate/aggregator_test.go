package aggregate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blanqui04/capstat/config"
	"github.com/Blanqui04/capstat/db"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/measure"
)

// openTestDB creates a throwaway database with two machine tables that
// name their columns differently.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "measures.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE zeiss_measures (
		id_client TEXT, id_referencia_client TEXT, id_lot TEXT,
		element TEXT, datum TEXT, property TEXT, cavitat TEXT,
		actual TEXT, data_hora DATETIME,
		nominal REAL, tolerancia_negativa REAL, tolerancia_positiva REAL
	)`)
	require.NoError(t, err)

	_, err = conn.Exec(`CREATE TABLE mitutoyo_measures (
		client TEXT, reference TEXT, lot TEXT,
		element TEXT, datum TEXT, property TEXT, cavity TEXT,
		value TEXT, timestamp DATETIME,
		nominal REAL, tol_negative REAL, tol_positive REAL
	)`)
	require.NoError(t, err)

	return conn
}

func insertZeiss(t *testing.T, conn *sql.DB, element, raw string, ts time.Time) {
	t.Helper()
	_, err := conn.Exec(`INSERT INTO zeiss_measures VALUES (?, ?, ?, ?, '', '', '', ?, ?, 10.0, -0.5, 0.5)`,
		"acme", "REF-100", "L1", element, raw, ts)
	require.NoError(t, err)
}

func insertMitutoyo(t *testing.T, conn *sql.DB, element, raw string, ts time.Time) {
	t.Helper()
	_, err := conn.Exec(`INSERT INTO mitutoyo_measures VALUES (?, ?, ?, ?, '', '', '', ?, ?, 10.0, -0.5, 0.5)`,
		"acme", "REF-100", "L1", element, raw, ts)
	require.NoError(t, err)
}

func testSources(conn *sql.DB, tables ...string) []*Source {
	zeiss := config.SourceConfig{
		ID:    "zeiss",
		Table: "zeiss_measures",
		Columns: map[string]string{
			"client": "id_client", "reference": "id_referencia_client", "lot": "id_lot",
			"value": "actual", "timestamp": "data_hora", "cavity": "cavitat",
			"tol_negative": "tolerancia_negativa", "tol_positive": "tolerancia_positiva",
		},
	}
	mitutoyo := config.SourceConfig{ID: "mitutoyo", Table: "mitutoyo_measures"}

	sources := []*Source{NewSource(conn, zeiss, nil), NewSource(conn, mitutoyo, nil)}
	for _, table := range tables {
		sources = append(sources, NewSource(conn, config.SourceConfig{ID: table, Table: table}, nil))
	}
	return sources
}

func TestFetchMergesAcrossSources(t *testing.T) {
	conn := openTestDB(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	insertZeiss(t, conn, "diameter", "10,1", base)
	insertZeiss(t, conn, "diameter", "10,2", base.Add(time.Minute))
	// same measurement also logged by the second machine
	insertMitutoyo(t, conn, "diameter", "10.1", base)
	insertMitutoyo(t, conn, "diameter", "10.3", base.Add(2*time.Minute))

	agg := NewAggregator(testSources(conn), nil)
	rs, err := agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "REF-100", Lot: "L1"})
	require.NoError(t, err)

	assert.False(t, rs.Partial)
	assert.Equal(t, 0, rs.Conflicts)
	require.Len(t, rs.Records, 3)
	require.NotNil(t, rs.Records[0].Value)
	assert.InDelta(t, 10.1, *rs.Records[0].Value, 1e-12)
	assert.Equal(t, "10,2", rs.Records[1].RawToken)
	assert.Equal(t, "10.3", rs.Records[2].RawToken)

	key := measure.ElementKey{Client: "acme", Reference: "REF-100", Lot: "L1", Element: "diameter"}
	tol, ok := rs.ToleranceFor(key)
	require.True(t, ok)
	assert.InDelta(t, 10.0, tol.Nominal, 1e-12)
}

func TestFetchFlagsCrossSourceConflicts(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	insertZeiss(t, conn, "diameter", "10.1", ts)
	insertMitutoyo(t, conn, "diameter", "10.4", ts)

	agg := NewAggregator(testSources(conn), nil)
	rs, err := agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "REF-100"})
	require.NoError(t, err)

	require.Len(t, rs.Records, 2)
	assert.Equal(t, 2, rs.Conflicts)
	assert.True(t, rs.Records[0].Conflict)
	assert.True(t, rs.Records[1].Conflict)
}

func TestFetchPartialWhenOneSourceFails(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertZeiss(t, conn, "diameter", "10.1", ts)

	sources := testSources(conn, "missing_table")
	agg := NewAggregator(sources, nil)
	rs, err := agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "REF-100"})
	require.NoError(t, err)

	assert.True(t, rs.Partial)
	require.Len(t, rs.SourceErrors, 1)
	assert.Equal(t, "missing_table", rs.SourceErrors[0].SourceID)
	require.Len(t, rs.Records, 1)

	perr := rs.PartialErr()
	require.Error(t, perr)
	assert.ErrorIs(t, perr, errors.ErrPartialSourceFailure)
}

func TestFetchAllSourcesFailed(t *testing.T) {
	conn := openTestDB(t)

	agg := NewAggregator([]*Source{
		NewSource(conn, config.SourceConfig{ID: "ghost", Table: "missing_table"}, nil),
	}, nil)
	_, err := agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "REF-100"})
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
}

func TestFetchValidatesFilter(t *testing.T) {
	conn := openTestDB(t)
	agg := NewAggregator(testSources(conn), nil)

	_, err := agg.Fetch(context.Background(), Filter{Reference: "REF-100"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidFilter)

	_, err = agg.Fetch(context.Background(), Filter{Client: "acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidFilter)

	_, err = agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "REF-100", SourceIDs: []string{"nope"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidFilter)
}

func TestFetchSourceSelection(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertZeiss(t, conn, "diameter", "10.1", ts)
	insertMitutoyo(t, conn, "diameter", "10.4", ts)

	agg := NewAggregator(testSources(conn), nil)
	rs, err := agg.Fetch(context.Background(), Filter{
		Client: "acme", Reference: "REF-100", SourceIDs: []string{"mitutoyo"},
	})
	require.NoError(t, err)

	require.Len(t, rs.Records, 1)
	assert.Equal(t, "mitutoyo", rs.Records[0].SourceID)
}

func TestFetchReferenceMatchIsCaseInsensitiveSubstring(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertZeiss(t, conn, "diameter", "10.1", ts)

	agg := NewAggregator(testSources(conn), nil)
	rs, err := agg.Fetch(context.Background(), Filter{Client: "acme", Reference: "ref-1"})
	require.NoError(t, err)
	assert.Len(t, rs.Records, 1)
}

func TestListElementsAndLots(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertZeiss(t, conn, "diameter", "10.1", ts)
	insertZeiss(t, conn, "diameter", "10.2", ts.Add(time.Minute))
	insertMitutoyo(t, conn, "diameter", "10.3", ts.Add(2*time.Minute))
	insertMitutoyo(t, conn, "flatness", "0.02", ts)

	agg := NewAggregator(testSources(conn), nil)

	elements, err := agg.ListElements(context.Background(), "acme", "REF-100", nil)
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "diameter", elements[0].Element)
	assert.Equal(t, 3, elements[0].Count)
	assert.Equal(t, "flatness", elements[1].Element)
	assert.Equal(t, 1, elements[1].Count)

	lots, err := agg.ListLots(context.Background(), "acme", "REF-100", nil)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "L1", lots[0].Lot)
	assert.Equal(t, 4, lots[0].Count)
	assert.Equal(t, ts, lots[0].First.UTC())
	assert.Equal(t, ts.Add(2*time.Minute), lots[0].Last.UTC())
}

func TestFetchCanceledContextNotSourceUnavailable(t *testing.T) {
	conn := openTestDB(t)
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	insertZeiss(t, conn, "diameter", "10.1", ts)

	agg := NewAggregator(testSources(conn), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Fetch(ctx, Filter{Client: "acme", Reference: "REF-100"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsSourceUnavailable(err))
}
