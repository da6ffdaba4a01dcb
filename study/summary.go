// Package study orchestrates capability studies: it aggregates
// measurements, builds per-element samples, optionally extends short
// samples, analyzes each element, and collects everything into one
// summary. Elements fail independently; a single bad element never
// aborts the study.
package study

import (
	"sort"
	"time"

	"github.com/Blanqui04/capstat/aggregate"
	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/extrapolate"
	"github.com/Blanqui04/capstat/measure"
)

// Entry is the outcome for one element. Either Result or Err is set;
// ErrKind carries the machine-readable failure class for reporting.
type Entry struct {
	Key           measure.ElementKey    `json:"key"`
	Tolerance     measure.ToleranceSpec `json:"tolerance"`
	Result        *capability.Result    `json:"result,omitempty"`
	Extrapolation *extrapolate.Result   `json:"extrapolation,omitempty"`
	ParseFailures int                   `json:"parse_failures"`
	Conflicts     int                   `json:"conflicts"`

	Err     error  `json:"-"`
	ErrKind string `json:"error_kind,omitempty"`
}

// Failed reports whether the element produced no result at all. An
// element with a result and an advisory error, such as a zero-variance
// sample off nominal, is not counted as failed.
func (e *Entry) Failed() bool { return e.Result == nil }

// Summary is the outcome of one study run.
type Summary struct {
	StudyID   string `json:"study_id"`
	Client    string `json:"client"`
	Reference string `json:"reference"`
	Lot       string `json:"lot,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Partial mirrors the aggregation outcome: at least one source did
	// not answer and the study ran on the remainder.
	Partial      bool                    `json:"partial"`
	SourceErrors []aggregate.SourceError `json:"source_errors,omitempty"`

	Entries []Entry `json:"entries"`
}

// Counts tallies entries per capability status.
func (s *Summary) Counts() map[capability.Status]int {
	counts := make(map[capability.Status]int)
	for i := range s.Entries {
		if s.Entries[i].Result != nil {
			counts[s.Entries[i].Result.Status]++
		}
	}
	return counts
}

// FailedCount returns the number of elements that produced no result.
func (s *Summary) FailedCount() int {
	failed := 0
	for i := range s.Entries {
		if s.Entries[i].Failed() {
			failed++
		}
	}
	return failed
}

// Entry returns the entry for key, if present.
func (s *Summary) Entry(key measure.ElementKey) (*Entry, bool) {
	nk := key.Normalized()
	for i := range s.Entries {
		if s.Entries[i].Key.Normalized() == nk {
			return &s.Entries[i], true
		}
	}
	return nil, false
}

func (s *Summary) sortEntries() {
	sort.Slice(s.Entries, func(i, j int) bool {
		return s.Entries[i].Key.String() < s.Entries[j].Key.String()
	})
}

func newEntryError(key measure.ElementKey, err error) Entry {
	return Entry{Key: key, Err: err, ErrKind: errors.Kind(err)}
}
