package aggregate

import (
	"sort"
	"time"

	"github.com/Blanqui04/capstat/measure"
)

// dedupKey identifies one measurement to the second. Machines line up on
// wall-clock seconds even when their sub-second precision differs, so
// the second is the dedup resolution.
type dedupKey struct {
	key   measure.ElementKey
	unix  int64
	value string
}

type groupKey struct {
	key  measure.ElementKey
	unix int64
}

// mergeRecords orders records by timestamp, drops exact duplicates
// reported by multiple sources, and flags conflicts. Two records conflict
// when they share element key and second but disagree on value; both are
// kept and flagged rather than silently resolved.
func mergeRecords(records []measure.MeasurementRecord) (merged []measure.MeasurementRecord, conflicts int) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].SourceID < records[j].SourceID
	})

	seen := make(map[dedupKey]struct{}, len(records))
	groups := make(map[groupKey][]int, len(records))
	merged = make([]measure.MeasurementRecord, 0, len(records))

	for _, rec := range records {
		nk := rec.Key.Normalized()
		unix := rec.Timestamp.Truncate(time.Second).Unix()
		val := rec.RawToken
		if rec.Value != nil {
			val = measure.FormatValue(*rec.Value)
		}

		dk := dedupKey{key: nk, unix: unix, value: val}
		if _, dup := seen[dk]; dup {
			continue
		}
		seen[dk] = struct{}{}

		gk := groupKey{key: nk, unix: unix}
		idx := len(merged)
		if prior := groups[gk]; len(prior) > 0 {
			// same key and second, different value
			rec.Conflict = true
			conflicts++
			for _, p := range prior {
				if !merged[p].Conflict {
					merged[p].Conflict = true
					conflicts++
				}
			}
		}
		groups[gk] = append(groups[gk], idx)
		merged = append(merged, rec)
	}
	return merged, conflicts
}
