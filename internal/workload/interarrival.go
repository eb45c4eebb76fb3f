package workload

import (
	"fmt"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// InterarrivalDistribution draws the delay offset before the next
// Generate self-event.
type InterarrivalDistribution interface {
	ForwardGenerate(rng *kernel.Stream) (offset float64)
	ReverseGenerate(rng *kernel.Stream)
}

// Fixed always returns the same interval and consumes no RNG draws,
// matching FixedInterarrivalDistribution in the original model.
type Fixed struct {
	Interval float64
}

func NewFixed(interval float64) (*Fixed, error) {
	if !(interval > 0) {
		return nil, fmt.Errorf("%w: fixed interarrival interval must be positive, got %v", errs.ErrInvalidConfig, interval)
	}
	return &Fixed{Interval: interval}, nil
}

func (f *Fixed) ForwardGenerate(rng *kernel.Stream) float64 { return f.Interval }
func (f *Fixed) ReverseGenerate(rng *kernel.Stream)         {}

// Poisson draws one exponential variate per call and is reversed by a
// single uniform reverse, matching PoissonInterarrivalDistribution in the
// original model.
type Poisson struct {
	Lambda float64
}

func NewPoisson(lambda float64) (*Poisson, error) {
	if !(lambda > 0) {
		return nil, fmt.Errorf("%w: poisson interarrival lambda must be positive, got %v", errs.ErrInvalidConfig, lambda)
	}
	return &Poisson{Lambda: lambda}, nil
}

func (p *Poisson) ForwardGenerate(rng *kernel.Stream) float64 {
	return rng.Exponential(p.Lambda)
}

func (p *Poisson) ReverseGenerate(rng *kernel.Stream) {
	rng.ReverseUniform()
}
