package workload

import (
	"testing"

	"github.com/ispd-go/ispd-go/internal/kernel"
)

func TestConstantWorkload_GeneratesFixedPairAndDecrementsRemaining(t *testing.T) {
	w, err := NewConstantWorkload(1, 3, 100, 50, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := kernel.NewStream(1)

	proc, comm := w.ForwardGenerate(rng)
	if proc != 100 || comm != 50 {
		t.Fatalf("expected (100, 50), got (%v, %v)", proc, comm)
	}
	if w.Remaining() != 2 {
		t.Fatalf("expected remaining 2, got %d", w.Remaining())
	}
	if !rng.Balanced() {
		t.Fatal("expected constant workload to consume no RNG draws")
	}

	w.ReverseGenerate(rng)
	if w.Remaining() != 3 {
		t.Fatalf("expected remaining restored to 3, got %d", w.Remaining())
	}
}

func TestConstantWorkload_RejectsNonPositiveSizes(t *testing.T) {
	if _, err := NewConstantWorkload(1, 1, 0, 10, 0); err == nil {
		t.Fatal("expected an error for zero proc_size")
	}
	if _, err := NewConstantWorkload(1, 1, 10, -1, 0); err == nil {
		t.Fatal("expected an error for negative comm_size")
	}
}

func TestUniformWorkload_DrawsWithinRangeAndReverses(t *testing.T) {
	w, err := NewUniformWorkload(1, 5, 10, 20, 1, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := kernel.NewStream(7)

	proc, comm := w.ForwardGenerate(rng)
	if proc < 10 || proc > 20 {
		t.Fatalf("expected proc_size in [10,20], got %v", proc)
	}
	if comm < 1 || comm > 2 {
		t.Fatalf("expected comm_size in [1,2], got %v", comm)
	}

	w.ReverseGenerate(rng)
	if !rng.Balanced() {
		t.Fatal("expected stream balanced after forward/reverse pair")
	}

	proc2, comm2 := w.ForwardGenerate(rng)
	if proc2 != proc || comm2 != comm {
		t.Fatalf("expected reversal to reproduce the same draws, got (%v,%v) want (%v,%v)", proc2, comm2, proc, comm)
	}
}

func TestUniformWorkload_RejectsInvalidRanges(t *testing.T) {
	if _, err := NewUniformWorkload(1, 1, 20, 10, 1, 2, 0); err == nil {
		t.Fatal("expected an error when max < min for proc_size")
	}
}

func TestTwoStageWorkload_DrawsFourUniformsAndReverses(t *testing.T) {
	proc := TwoStageDistribution{Min: 1, Med: 5, Max: 10, StageProb: 0.5}
	comm := TwoStageDistribution{Min: 1, Med: 2, Max: 3, StageProb: 0.5}
	w, err := NewTwoStageWorkload(1, 2, proc, comm, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng := kernel.NewStream(9)

	p, c := w.ForwardGenerate(rng)
	if p < 1 || p > 10 {
		t.Fatalf("expected proc_size within overall bounds, got %v", p)
	}
	if c < 1 || c > 3 {
		t.Fatalf("expected comm_size within overall bounds, got %v", c)
	}
	draws, _ := rng.DrawCounts()
	if draws != 4 {
		t.Fatalf("expected exactly 4 uniform draws per generation, got %d", draws)
	}

	w.ReverseGenerate(rng)
	if !rng.Balanced() {
		t.Fatal("expected stream balanced after forward/reverse pair")
	}
}

func TestTwoStageWorkload_RejectsInvalidBounds(t *testing.T) {
	bad := TwoStageDistribution{Min: 0, Med: 5, Max: 10, StageProb: 0.5}
	ok := TwoStageDistribution{Min: 1, Med: 2, Max: 3, StageProb: 0.5}
	if _, err := NewTwoStageWorkload(1, 1, bad, ok, 0); err == nil {
		t.Fatal("expected an error for a non-positive distribution bound")
	}
}

func TestNullWorkload_NeverGeneratesAndHasZeroRemaining(t *testing.T) {
	w := NewNullWorkload(1)
	if w.Remaining() != 0 {
		t.Fatalf("expected remaining 0, got %d", w.Remaining())
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected ForwardGenerate on NullWorkload to panic")
		}
	}()
	w.ForwardGenerate(kernel.NewStream(1))
}
