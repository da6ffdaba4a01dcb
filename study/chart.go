package study

import (
	"math"

	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/sample"
)

// ChartData carries everything a run chart and histogram need for one
// element: the observed and synthetic series kept apart, the control
// limits from short-term variation, and the specification limits.
type ChartData struct {
	Observed  []float64 `json:"observed"`
	Synthetic []float64 `json:"synthetic"`

	Mean float64 `json:"mean"`
	UCL  float64 `json:"ucl"`
	LCL  float64 `json:"lcl"`

	Nominal float64 `json:"nominal"`
	LSL     float64 `json:"lsl"`
	USL     float64 `json:"usl"`

	// Histogram bin edges and per-bin counts over the combined series.
	BinEdges  []float64 `json:"bin_edges"`
	BinCounts []int     `json:"bin_counts"`
}

// BuildChartData assembles chart data from a sample and its analysis.
// Control limits sit three short-term sigmas from the mean.
func BuildChartData(s *sample.Sample, res *capability.Result) *ChartData {
	tol := s.Tolerance()
	cd := &ChartData{
		Observed:  s.Observed(),
		Synthetic: s.Synthetic(),
		Mean:      res.Mean,
		UCL:       res.Mean + 3*res.StdDevWithin,
		LCL:       res.Mean - 3*res.StdDevWithin,
		Nominal:   tol.Nominal,
		LSL:       tol.LSL(),
		USL:       tol.USL(),
	}
	cd.BinEdges, cd.BinCounts = histogram(s.Values())
	return cd
}

// histogram bins values with the Sturges rule. Fewer than two distinct
// values produce no histogram.
func histogram(values []float64) (edges []float64, counts []int) {
	n := len(values)
	if n < 2 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return nil, nil
	}

	bins := int(math.Ceil(math.Log2(float64(n)))) + 1
	width := (hi - lo) / float64(bins)

	edges = make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts = make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return edges, counts
}
