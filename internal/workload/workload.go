// Package workload implements the reversible task-stream generators:
// stateful producers of (proc_size, comm_size) pairs, each exactly
// undoable via its own reverse method, tagged-variant style (no base
// class, no dynamic dispatch).
package workload

import (
	"fmt"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// Workload is a stateful stream of (proc_size, comm_size) tuples for a
// single owning user. ForwardGenerate decrements Remaining and draws from
// the RNG stream it is given; ReverseGenerate undoes exactly that.
type Workload interface {
	Init()
	ForwardGenerate(rng *kernel.Stream) (procSize, commSize float64)
	ReverseGenerate(rng *kernel.Stream)
	Remaining() uint64
	Owner() kernel.UserId
	ComputingOffload() float64
}

// base carries the fields every variant shares, grounded on the original
// model's ispd::workload::Workload base (src/workload/workload.cpp).
type base struct {
	owner            kernel.UserId
	remaining        uint64
	computingOffload float64
}

func (b *base) Remaining() uint64          { return b.remaining }
func (b *base) Owner() kernel.UserId       { return b.owner }
func (b *base) ComputingOffload() float64  { return b.computingOffload }

// ConstantWorkload always generates the same (proc_size, comm_size) pair
// and consumes no RNG draws, matching workload_constant in the original
// model's workload.hpp.
type ConstantWorkload struct {
	base
	ProcSize float64
	CommSize float64
}

func NewConstantWorkload(owner kernel.UserId, remaining uint64, procSize, commSize, offload float64) (*ConstantWorkload, error) {
	if procSize <= 0 {
		return nil, fmt.Errorf("%w: constant workload proc_size must be positive, got %v", errs.ErrInvalidConfig, procSize)
	}
	if commSize <= 0 {
		return nil, fmt.Errorf("%w: constant workload comm_size must be positive, got %v", errs.ErrInvalidConfig, commSize)
	}
	return &ConstantWorkload{
		base:     base{owner: owner, remaining: remaining, computingOffload: offload},
		ProcSize: procSize,
		CommSize: commSize,
	}, nil
}

func (w *ConstantWorkload) Init() {}

func (w *ConstantWorkload) ForwardGenerate(rng *kernel.Stream) (float64, float64) {
	w.remaining--
	return w.ProcSize, w.CommSize
}

func (w *ConstantWorkload) ReverseGenerate(rng *kernel.Stream) {
	w.remaining++
}

// UniformWorkload draws proc_size and comm_size independently and
// uniformly from [min, max], consuming two RNG draws per generation,
// matching workload_uniform in the original model.
type UniformWorkload struct {
	base
	MinProcSize, MaxProcSize float64
	MinCommSize, MaxCommSize float64
}

func NewUniformWorkload(owner kernel.UserId, remaining uint64, minProc, maxProc, minComm, maxComm, offload float64) (*UniformWorkload, error) {
	if minProc <= 0 || maxProc <= 0 || maxProc < minProc {
		return nil, fmt.Errorf("%w: uniform workload proc_size range invalid: [%v, %v]", errs.ErrInvalidConfig, minProc, maxProc)
	}
	if minComm <= 0 || maxComm <= 0 || maxComm < minComm {
		return nil, fmt.Errorf("%w: uniform workload comm_size range invalid: [%v, %v]", errs.ErrInvalidConfig, minComm, maxComm)
	}
	return &UniformWorkload{
		base:        base{owner: owner, remaining: remaining, computingOffload: offload},
		MinProcSize: minProc, MaxProcSize: maxProc,
		MinCommSize: minComm, MaxCommSize: maxComm,
	}, nil
}

func (w *UniformWorkload) Init() {}

func (w *UniformWorkload) ForwardGenerate(rng *kernel.Stream) (float64, float64) {
	procSize := w.MinProcSize + rng.Uniform()*(w.MaxProcSize-w.MinProcSize)
	commSize := w.MinCommSize + rng.Uniform()*(w.MaxCommSize-w.MinCommSize)
	w.remaining--
	return procSize, commSize
}

func (w *UniformWorkload) ReverseGenerate(rng *kernel.Stream) {
	rng.ReverseUniform() // undo comm_size draw
	rng.ReverseUniform() // undo proc_size draw
	w.remaining++
}

// TwoStageDistribution is a bimodal distribution: with probability
// StageProb a draw falls in [Min, Med], otherwise in [Med, Max]. It
// always consumes exactly two uniform draws (stage-selector, then
// within-stage position) regardless of which stage is chosen, so
// reversal is unconditional, matching TwoStageUniformWorkload in the
// original model (src/workload/workload.cpp).
type TwoStageDistribution struct {
	Min, Med, Max float64
	StageProb     float64 // probability of the [Min, Med] stage
}

func (d TwoStageDistribution) validate(label string) error {
	if !(d.Min > 0) || !(d.Med > 0) || !(d.Max > 0) {
		return fmt.Errorf("%w: two-stage %s distribution bounds must be positive", errs.ErrInvalidConfig, label)
	}
	if d.StageProb < 0 || d.StageProb > 1 {
		return fmt.Errorf("%w: two-stage %s stage probability must be in [0,1], got %v", errs.ErrInvalidConfig, label, d.StageProb)
	}
	return nil
}

func (d TwoStageDistribution) draw(rng *kernel.Stream) float64 {
	if rng.Uniform() < d.StageProb {
		return d.Min + rng.Uniform()*(d.Med-d.Min)
	}
	return d.Med + rng.Uniform()*(d.Max-d.Med)
}

// TwoStageWorkload draws proc_size and comm_size from independent
// two-stage distributions, matching TwoStageUniformWorkload.
type TwoStageWorkload struct {
	base
	ProcDist TwoStageDistribution
	CommDist TwoStageDistribution
}

func NewTwoStageWorkload(owner kernel.UserId, remaining uint64, procDist, commDist TwoStageDistribution, offload float64) (*TwoStageWorkload, error) {
	if err := procDist.validate("processing"); err != nil {
		return nil, err
	}
	if err := commDist.validate("communication"); err != nil {
		return nil, err
	}
	return &TwoStageWorkload{
		base:     base{owner: owner, remaining: remaining, computingOffload: offload},
		ProcDist: procDist,
		CommDist: commDist,
	}, nil
}

func (w *TwoStageWorkload) Init() {}

func (w *TwoStageWorkload) ForwardGenerate(rng *kernel.Stream) (float64, float64) {
	procSize := w.ProcDist.draw(rng)
	commSize := w.CommDist.draw(rng)
	w.remaining--
	return procSize, commSize
}

func (w *TwoStageWorkload) ReverseGenerate(rng *kernel.Stream) {
	// Each draw() call consumed exactly two uniform draws, regardless of
	// which stage was selected.
	rng.ReverseUniform()
	rng.ReverseUniform()
	rng.ReverseUniform()
	rng.ReverseUniform()
	w.remaining++
}

// NullWorkload generates nothing; Remaining is always 0. It represents an
// LP that participates in routing/topology but never originates tasks,
// matching NullWorkload in the original model.
type NullWorkload struct {
	base
}

func NewNullWorkload(owner kernel.UserId) *NullWorkload {
	return &NullWorkload{base: base{owner: owner, remaining: 0, computingOffload: 0}}
}

func (w *NullWorkload) Init() {}

func (w *NullWorkload) ForwardGenerate(rng *kernel.Stream) (float64, float64) {
	panic(fmt.Errorf("%w: ForwardGenerate called on NullWorkload", errs.ErrPolicyViolation))
}

func (w *NullWorkload) ReverseGenerate(rng *kernel.Stream) {
	panic(fmt.Errorf("%w: ReverseGenerate called on NullWorkload", errs.ErrPolicyViolation))
}
