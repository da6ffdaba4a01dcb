// Package capability is the pure statistical engine of capstat. It turns
// a bound sample into descriptive statistics, the four process capability
// indices, a normality assessment, and an OK/NOK/TO_CHECK verdict.
//
// Short-term (within) variation drives Cp/Cpk and is estimated from the
// mean moving range of consecutive observations; long-term (overall)
// variation drives Pp/Ppk and is the plain n-1 sample standard deviation.
// The two are never computed from the same estimator.
package capability

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/measure"
	"github.com/Blanqui04/capstat/sample"
)

// d2 is the control-chart constant for subgroup size 2, used to convert
// the mean moving range into a short-term sigma estimate.
const d2 = 1.128

// Classification thresholds applied to Ppk, the conservative indicator.
const (
	thresholdOK      = 1.33
	thresholdToCheck = 1.00
)

// Status classifies a capability result.
type Status string

const (
	StatusOK               Status = "OK"
	StatusNOK              Status = "NOK"
	StatusToCheck          Status = "TO_CHECK"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
)

// Result is the outcome of one analysis run. A fresh Result is created on
// every run; results are never mutated in place.
type Result struct {
	Mean          float64 `json:"mean"`
	StdDevOverall float64 `json:"stddev_overall"`
	StdDevWithin  float64 `json:"stddev_within"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`

	Cp  float64 `json:"cp"`
	Cpk float64 `json:"cpk"`
	Pp  float64 `json:"pp"`
	Ppk float64 `json:"ppk"`

	// Estimated defect rates in parts per million, from the normal model.
	PPMWithin  float64 `json:"ppm_within"`
	PPMOverall float64 `json:"ppm_overall"`

	N          int `json:"n"`
	NSynthetic int `json:"n_synthetic"`

	ADStatistic float64 `json:"ad_statistic"`
	PValue      float64 `json:"p_value"`
	Normal      bool    `json:"normal"`

	Status Status `json:"status"`
}

// Analyze computes capability statistics for a sample. The sample is not
// modified. A zero-variance sample whose mean is off nominal returns both
// a NOK result and an error wrapping ErrZeroVarianceOutOfSpec; every
// other degenerate input is expressed through Status, not an error.
func Analyze(s *sample.Sample) (*Result, error) {
	return AnalyzeWith(s, minNormalitySize)
}

// AnalyzeWith is Analyze with a caller-chosen minimum sample size for
// the normality test. A non-positive minimum falls back to the package
// default.
func AnalyzeWith(s *sample.Sample, minNormality int) (*Result, error) {
	if minNormality <= 0 {
		minNormality = minNormalitySize
	}
	values := s.Values()
	n := len(values)
	tol := s.Tolerance()

	res := &Result{
		N:           n,
		NSynthetic:  s.NSynthetic(),
		ADStatistic: math.NaN(),
		PValue:      math.NaN(),
	}

	if n < 2 {
		// A standard deviation needs two values. One value still reports
		// its descriptive stats.
		if n == 1 {
			res.Mean = values[0]
			res.Min = values[0]
			res.Max = values[0]
		}
		res.Status = StatusInsufficientData
		return res, nil
	}

	res.Mean = stat.Mean(values, nil)
	res.StdDevOverall = stat.StdDev(values, nil)
	res.StdDevWithin = meanMovingRange(values) / d2
	res.Min = floats.Min(values)
	res.Max = floats.Max(values)

	if res.StdDevOverall == 0 {
		if res.Mean == tol.Nominal {
			// Perfectly repeating on target: capability is unbounded.
			res.Cp = math.Inf(1)
			res.Cpk = math.Inf(1)
			res.Pp = math.Inf(1)
			res.Ppk = math.Inf(1)
			res.Status = StatusOK
			return res, nil
		}
		res.Status = StatusNOK
		return res, errors.Wrapf(errors.ErrZeroVarianceOutOfSpec,
			"element %s: mean %v, nominal %v", s.Key().ID(), res.Mean, tol.Nominal)
	}

	et := s.ElementType()
	res.Cp, res.Cpk = processIndices(et, tol, res.Mean, res.StdDevWithin)
	res.Pp, res.Ppk = processIndices(et, tol, res.Mean, res.StdDevOverall)
	res.PPMWithin = defectPPM(tol, res.Mean, res.StdDevWithin)
	res.PPMOverall = defectPPM(tol, res.Mean, res.StdDevOverall)
	res.Status = classify(res.Ppk)

	if n >= minNormality {
		a2, p, err := NormalityTest(values, res.Mean, res.StdDevOverall)
		if err == nil {
			res.ADStatistic = a2
			res.PValue = p
			res.Normal = p >= 0.05
		}
	}

	return res, nil
}

// processIndices computes the potential index (USL-LSL over six sigma)
// and the actual index for the given sigma estimator. One-sided
// characteristics report only the bounded side: traction-style tests are
// limited from below, GD&T characteristics from above. Negative values
// indicate a mean outside spec and are reported as-is, never clamped.
func processIndices(et measure.ElementType, tol measure.ToleranceSpec, mean, sigma float64) (p, pk float64) {
	pkInf := (mean - tol.LSL()) / (3 * sigma)
	pkSup := (tol.USL() - mean) / (3 * sigma)
	p = (tol.USL() - tol.LSL()) / (6 * sigma)

	switch et {
	case measure.Traction:
		pk = pkInf
	case measure.GDT:
		pk = pkSup
	default:
		pk = math.Min(pkSup, pkInf)
	}
	return p, pk
}

// meanMovingRange returns the mean absolute difference of consecutive
// observations.
func meanMovingRange(values []float64) float64 {
	sum := 0.0
	for i := 1; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-1])
	}
	return sum / float64(len(values)-1)
}

func classify(ppk float64) Status {
	switch {
	case ppk >= thresholdOK:
		return StatusOK
	case ppk >= thresholdToCheck:
		return StatusToCheck
	default:
		return StatusNOK
	}
}
