package measure

import "time"

// MeasurementRecord is one observed value from one source. Exactly one of
// Value / ParseFailed is set: Value is nil only when the raw token could
// not be parsed as a number under any recognized locale, and the token is
// retained for diagnostics either way.
type MeasurementRecord struct {
	Key       ElementKey
	Value     *float64
	Timestamp time.Time
	SourceID  string
	RawToken  string

	// ParseFailed marks a record whose raw token defeated the parser.
	ParseFailed bool
	// Conflict marks a record that shares key and timestamp with a record
	// from another source but carries a different value. Both records are
	// retained; silent loss of conflicting measurements is a correctness
	// hazard.
	Conflict bool
}

// NewRecord parses raw into a measurement record for key. A token the
// parser cannot handle produces a ParseFailed record, never an error.
func NewRecord(key ElementKey, ts time.Time, sourceID, raw string) MeasurementRecord {
	rec := MeasurementRecord{
		Key:       key,
		Timestamp: ts,
		SourceID:  sourceID,
		RawToken:  raw,
	}
	if parsed := ParseToken(raw); parsed.OK {
		v := parsed.Value
		rec.Value = &v
	} else {
		rec.ParseFailed = true
	}
	return rec
}
