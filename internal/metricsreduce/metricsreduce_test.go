package metricsreduce

import (
	"math"
	"testing"
)

func TestReduce_EmptyYieldsZeroValue(t *testing.T) {
	got := Reduce(nil)
	if got != (Summary{}) {
		t.Fatalf("expected zero-valued summary for empty input, got %+v", got)
	}
}

func TestReduce_ComputesMeanAndStddev(t *testing.T) {
	got := Reduce([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got.Mean-5.0) > 1e-9 {
		t.Fatalf("expected mean 5.0, got %v", got.Mean)
	}
	if got.N != 8 {
		t.Fatalf("expected N 8, got %d", got.N)
	}
	if got.Stddev <= 0 {
		t.Fatalf("expected a positive stddev for varying samples, got %v", got.Stddev)
	}
}

func TestReduce_SingleSampleMeanEqualsValue(t *testing.T) {
	got := Reduce([]float64{42})
	if got.Mean != 42 || got.N != 1 {
		t.Fatalf("expected mean 42 N 1, got %+v", got)
	}
}

func TestSum_AddsAllSamples(t *testing.T) {
	if got := Sum([]float64{1, 2, 3.5}); got != 6.5 {
		t.Fatalf("expected sum 6.5, got %v", got)
	}
	if got := Sum(nil); got != 0 {
		t.Fatalf("expected sum of empty slice to be 0, got %v", got)
	}
}
