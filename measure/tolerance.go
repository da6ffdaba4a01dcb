package measure

import "math"

// ToleranceSpec binds an element to its nominal value and tolerance band.
// The expected convention is TolNegative <= 0 <= TolPositive, but sources
// routinely report the negative tolerance as a positive magnitude;
// Normalized takes care of that.
type ToleranceSpec struct {
	Nominal     float64 `json:"nominal"`
	TolNegative float64 `json:"tol_negative"`
	TolPositive float64 `json:"tol_positive"`
}

// MissingTolerance returns the spec used when a source reports no
// nominal/tolerance binding. It never silently defaults to zero: a NaN
// nominal forces sample construction to fail with ErrMissingTolerance.
func MissingTolerance() ToleranceSpec {
	return ToleranceSpec{Nominal: math.NaN()}
}

// Missing reports whether the spec carries no usable nominal.
func (t ToleranceSpec) Missing() bool {
	return math.IsNaN(t.Nominal) || math.IsInf(t.Nominal, 0)
}

// Normalized returns the spec with TolNegative coerced to a non-positive
// magnitude. A source reporting tol_negative = 0.05 means "0.05 below
// nominal".
func (t ToleranceSpec) Normalized() ToleranceSpec {
	t.TolNegative = -math.Abs(t.TolNegative)
	return t
}

// LSL returns the lower specification limit, nominal + negative tolerance.
func (t ToleranceSpec) LSL() float64 { return t.Nominal + t.TolNegative }

// USL returns the upper specification limit, nominal + positive tolerance.
func (t ToleranceSpec) USL() float64 { return t.Nominal + t.TolPositive }
