package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/measure"
	"github.com/Blanqui04/capstat/sample"
)

func TestBuildChartData(t *testing.T) {
	key := measure.ElementKey{Client: "acme", Reference: "REF-100", Element: "diameter"}
	tol := measure.ToleranceSpec{Nominal: 10, TolNegative: -0.5, TolPositive: 0.5}
	s, err := sample.New(key, tol, []float64{9.9, 10.0, 10.1, 10.05, 9.95, 10.02})
	require.NoError(t, err)
	s.AppendSynthetic(10.03, 9.97)

	res, err := capability.Analyze(s)
	require.NoError(t, err)

	cd := BuildChartData(s, res)

	assert.Len(t, cd.Observed, 6)
	assert.Len(t, cd.Synthetic, 2)
	assert.InDelta(t, res.Mean+3*res.StdDevWithin, cd.UCL, 1e-12)
	assert.InDelta(t, res.Mean-3*res.StdDevWithin, cd.LCL, 1e-12)
	assert.InDelta(t, 9.5, cd.LSL, 1e-12)
	assert.InDelta(t, 10.5, cd.USL, 1e-12)

	require.NotEmpty(t, cd.BinCounts)
	require.Len(t, cd.BinEdges, len(cd.BinCounts)+1)
	total := 0
	for _, c := range cd.BinCounts {
		total += c
	}
	assert.Equal(t, 8, total)
}

func TestHistogramDegenerateInputs(t *testing.T) {
	edges, counts := histogram([]float64{10.0})
	assert.Nil(t, edges)
	assert.Nil(t, counts)

	edges, counts = histogram([]float64{10.0, 10.0, 10.0})
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}
