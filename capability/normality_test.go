package capability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/stat"
)

func TestNormalityTestSymmetricSample(t *testing.T) {
	values := []float64{9.7, 9.8, 9.9, 9.95, 10.0, 10.0, 10.05, 10.1, 10.2, 10.3}
	mean := stat.Mean(values, nil)
	sigma := stat.StdDev(values, nil)

	a2, p, err := NormalityTest(values, mean, sigma)
	require.NoError(t, err)

	assert.Positive(t, a2)
	assert.Greater(t, p, 0.05)
	assert.LessOrEqual(t, p, 1.0)
}

func TestNormalityTestSkewedSample(t *testing.T) {
	// heavy right tail, should score worse than the symmetric case
	values := []float64{10.0, 10.0, 10.0, 10.0, 10.01, 10.01, 10.02, 10.5, 11.0, 12.0}
	mean := stat.Mean(values, nil)
	sigma := stat.StdDev(values, nil)

	a2, p, err := NormalityTest(values, mean, sigma)
	require.NoError(t, err)

	assert.Greater(t, a2, 0.6)
	assert.Less(t, p, 0.05)
}

func TestNormalityTestRejectsSmallSample(t *testing.T) {
	_, _, err := NormalityTest([]float64{1, 2, 3}, 2, 1)
	require.Error(t, err)
}

func TestNormalityTestRejectsZeroSigma(t *testing.T) {
	_, _, err := NormalityTest([]float64{1, 1, 1, 1, 1}, 1, 0)
	require.Error(t, err)
}

func TestADPValuePiecewise(t *testing.T) {
	// p decreases as the statistic grows, across all four regimes
	stats := []float64{0.1, 0.25, 0.4, 0.8, 2.0}
	prev := 1.0
	for _, ad := range stats {
		p := adPValue(ad)
		assert.Greater(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.Less(t, p, prev, "p-value must decrease at ad=%v", ad)
		prev = p
	}
}

func TestC4(t *testing.T) {
	assert.InDelta(t, 0.7979, c4(2), 1e-4)
	assert.InDelta(t, 0.9400, c4(5), 1e-4)
	assert.InDelta(t, 0.9727, c4(10), 1e-4)
	assert.True(t, math.IsNaN(c4(1)))
}
