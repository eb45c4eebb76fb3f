// Package metricsreduce aggregates per-node metrics into the global
// report's "average" section using gonum/stat for the mean/variance
// computation.
package metricsreduce

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary is the mean, standard deviation and sample count reported for a
// single metric reduced across a rank's worth of LPs of the same kind.
type Summary struct {
	Mean   float64
	Stddev float64
	N      int
}

// Reduce computes a Summary over samples. An empty input yields a
// zero-valued Summary rather than propagating NaN into the report.
func Reduce(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	mean, variance := stat.MeanVariance(samples, nil)
	return Summary{
		Mean:   mean,
		Stddev: math.Sqrt(variance),
		N:      len(samples),
	}
}

// Sum returns the total of samples (0 for an empty slice). report.go keeps
// its TotalSection running totals by hand and does not call it.
func Sum(samples []float64) float64 {
	total := 0.0
	for _, s := range samples {
		total += s
	}
	return total
}
