// Package sample owns the in-memory representation of one element's
// measurement sample: its observed values, its nominal/tolerance binding,
// and the synthetic values appended by extrapolation. Observed and
// synthetic portions are kept in separate sequences so the boundary stays
// auditable.
package sample

import (
	"math"

	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/measure"
)

// Sample binds parsed numeric values to one element key and one tolerance
// spec. Its only mutation after construction is AppendSynthetic, used by
// the extrapolation manager.
type Sample struct {
	key           measure.ElementKey
	tol           measure.ToleranceSpec
	elementType   measure.ElementType
	observed      []float64
	synthetic     []float64
	parseFailures int
}

// New builds a sample from already-parsed values. The tolerance spec is
// normalized; a missing nominal fails with ErrMissingTolerance rather
// than defaulting to zero, which would corrupt every capability index.
func New(key measure.ElementKey, tol measure.ToleranceSpec, values []float64) (*Sample, error) {
	if tol.Missing() {
		return nil, errors.Wrapf(errors.ErrMissingTolerance, "element %s", key.ID())
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Newf("element %s: non-finite value in sample", key.ID())
		}
	}
	s := &Sample{
		key:         key,
		tol:         tol.Normalized(),
		elementType: measure.DetectElementType(key.Element + " " + key.Property),
		observed:    append([]float64(nil), values...),
	}
	return s, nil
}

// FromRecords builds a sample from aggregated measurement records.
// Records with unparseable tokens contribute to the parse-failure count,
// not to the numeric sample.
func FromRecords(key measure.ElementKey, tol measure.ToleranceSpec, records []measure.MeasurementRecord) (*Sample, error) {
	values := make([]float64, 0, len(records))
	failures := 0
	for _, rec := range records {
		if rec.Value != nil {
			values = append(values, *rec.Value)
		} else {
			failures++
		}
	}
	s, err := New(key, tol, values)
	if err != nil {
		return nil, err
	}
	s.parseFailures = failures
	return s, nil
}

// AppendSynthetic appends extrapolated values. The observed sequence is
// never touched.
func (s *Sample) AppendSynthetic(values ...float64) {
	s.synthetic = append(s.synthetic, values...)
}

// ResetSynthetic discards all synthetic values, restoring the sample to
// its observed state.
func (s *Sample) ResetSynthetic() {
	s.synthetic = nil
}

// Values returns a copy of the combined sequence: observed values first,
// synthetic values after.
func (s *Sample) Values() []float64 {
	out := make([]float64, 0, len(s.observed)+len(s.synthetic))
	out = append(out, s.observed...)
	out = append(out, s.synthetic...)
	return out
}

// Observed returns a copy of the real observations only.
func (s *Sample) Observed() []float64 {
	return append([]float64(nil), s.observed...)
}

// Synthetic returns a copy of the synthetic values only.
func (s *Sample) Synthetic() []float64 {
	return append([]float64(nil), s.synthetic...)
}

// N returns the combined sample size, observed plus synthetic.
func (s *Sample) N() int { return len(s.observed) + len(s.synthetic) }

// NObserved returns the number of real observations.
func (s *Sample) NObserved() int { return len(s.observed) }

// NSynthetic returns the number of synthetic values.
func (s *Sample) NSynthetic() int { return len(s.synthetic) }

// ParseFailures returns how many source records failed numeric parsing.
func (s *Sample) ParseFailures() int { return s.parseFailures }

// Key returns the element key the sample is bound to.
func (s *Sample) Key() measure.ElementKey { return s.key }

// Tolerance returns the normalized tolerance binding.
func (s *Sample) Tolerance() measure.ToleranceSpec { return s.tol }

// ElementType returns the detected characteristic classification.
func (s *Sample) ElementType() measure.ElementType { return s.elementType }
