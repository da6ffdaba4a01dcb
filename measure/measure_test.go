package measure

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElementKeyEqual(t *testing.T) {
	a := ElementKey{Client: "ZF", Reference: "0123456", Element: "12.1", Datum: "A", Property: "Diameter"}
	b := ElementKey{Client: "zf ", Reference: "0123456", Element: "12.1", Datum: "a", Property: "diameter"}
	c := ElementKey{Client: "ZF", Reference: "0123456", Element: "12.2", Datum: "A", Property: "Diameter"}

	assert.True(t, a.Equal(b), "case and whitespace must not distinguish keys")
	assert.False(t, a.Equal(c))
	assert.Equal(t, "12.1|A|Diameter", a.ID())
}

func TestToleranceNormalized(t *testing.T) {
	// Sources reporting the negative tolerance as a positive magnitude
	spec := ToleranceSpec{Nominal: 10.0, TolNegative: 0.2, TolPositive: 0.2}.Normalized()
	assert.Equal(t, -0.2, spec.TolNegative)
	assert.InDelta(t, 9.8, spec.LSL(), 1e-12)
	assert.InDelta(t, 10.2, spec.USL(), 1e-12)

	// Already-negative tolerances pass through
	spec = ToleranceSpec{Nominal: 10.0, TolNegative: -0.3, TolPositive: 0.1}.Normalized()
	assert.Equal(t, -0.3, spec.TolNegative)
}

func TestMissingTolerance(t *testing.T) {
	assert.True(t, MissingTolerance().Missing())
	assert.True(t, ToleranceSpec{Nominal: math.Inf(1)}.Missing())
	assert.False(t, ToleranceSpec{Nominal: 0}.Missing(), "a zero nominal is a valid GD&T binding")
}

func TestNewRecord(t *testing.T) {
	key := ElementKey{Client: "ZF", Reference: "0123456", Element: "12.1"}
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := NewRecord(key, ts, "gompc_nou", "0,25")
	assert.NotNil(t, rec.Value)
	assert.Equal(t, 0.25, *rec.Value)
	assert.False(t, rec.ParseFailed)
	assert.Equal(t, "0,25", rec.RawToken)

	bad := NewRecord(key, ts, "gompc_nou", "¿¿¿???")
	assert.Nil(t, bad.Value)
	assert.True(t, bad.ParseFailed)
	assert.Equal(t, "¿¿¿???", bad.RawToken)
}

func TestDetectElementType(t *testing.T) {
	assert.Equal(t, GDT, DetectElementType("Flatness_1"))
	assert.Equal(t, GDT, DetectElementType("Position tolerance"))
	assert.Equal(t, Traction, DetectElementType("Traccio_1"))
	assert.Equal(t, Traction, DetectElementType("Compression test"))
	assert.Equal(t, Dimensional, DetectElementType("Diameter_1"))
	assert.Equal(t, Dimensional, DetectElementType("Dimensio_2"))
}
