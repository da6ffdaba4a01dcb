package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Blanqui04/capstat/measure"
)

func rec(source, element, raw string, ts time.Time) measure.MeasurementRecord {
	key := measure.ElementKey{Client: "acme", Reference: "REF-100", Lot: "L1", Element: element}
	return measure.NewRecord(key, ts, source, raw)
}

func TestMergeRecordsOrdersByTimestamp(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m2", "diameter", "10.2", base.Add(2*time.Minute)),
		rec("m1", "diameter", "10.0", base),
		rec("m1", "diameter", "10.1", base.Add(time.Minute)),
	}

	merged, conflicts := mergeRecords(records)

	assert.Equal(t, 0, conflicts)
	assert.Len(t, merged, 3)
	assert.Equal(t, "10.0", merged[0].RawToken)
	assert.Equal(t, "10.1", merged[1].RawToken)
	assert.Equal(t, "10.2", merged[2].RawToken)
}

func TestMergeRecordsDropsExactDuplicates(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m1", "diameter", "10.0", ts),
		// same measurement reported by a second machine, shifted 300ms
		rec("m2", "diameter", "10.0", ts.Add(300*time.Millisecond)),
	}

	merged, conflicts := mergeRecords(records)

	assert.Equal(t, 0, conflicts)
	assert.Len(t, merged, 1)
	assert.Equal(t, "m1", merged[0].SourceID)
}

func TestMergeRecordsDedupIgnoresLocaleSpelling(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m1", "diameter", "10,25", ts),
		rec("m2", "diameter", "10.25", ts),
	}

	merged, conflicts := mergeRecords(records)

	assert.Equal(t, 0, conflicts)
	assert.Len(t, merged, 1)
}

func TestMergeRecordsFlagsConflicts(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m1", "diameter", "10.0", ts),
		rec("m2", "diameter", "10.3", ts.Add(500*time.Millisecond)),
	}

	merged, conflicts := mergeRecords(records)

	// both records kept, both flagged
	assert.Equal(t, 2, conflicts)
	assert.Len(t, merged, 2)
	assert.True(t, merged[0].Conflict)
	assert.True(t, merged[1].Conflict)
}

func TestMergeRecordsDifferentSecondsDoNotConflict(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m1", "diameter", "10.0", ts),
		rec("m2", "diameter", "10.3", ts.Add(time.Second)),
	}

	merged, conflicts := mergeRecords(records)

	assert.Equal(t, 0, conflicts)
	assert.Len(t, merged, 2)
	assert.False(t, merged[0].Conflict)
	assert.False(t, merged[1].Conflict)
}

func TestMergeRecordsDistinctKeysNeverCollide(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []measure.MeasurementRecord{
		rec("m1", "diameter", "10.0", ts),
		rec("m1", "flatness", "0.02", ts),
	}

	merged, conflicts := mergeRecords(records)

	assert.Equal(t, 0, conflicts)
	assert.Len(t, merged, 2)
}
