package policy

import (
	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// Allocator picks a target machine Lpid for a VM allocation request. The
// fit test itself happens at the machine on arrival; the allocator only
// decides which machine to try.
type Allocator interface {
	Init(machines []kernel.Lpid)
	ForwardAllocate(machines []kernel.Lpid, ev *kernel.Event) (kernel.Lpid, error)
	ReverseAllocate(machines []kernel.Lpid, ev *kernel.Event)
}

// FirstFit cycles through machines circularly, identical reverse
// discipline to RoundRobin: the actual fit/reject decision happens at the
// machine, not here.
type FirstFit struct {
	nextIndex int
}

func NewFirstFit() *FirstFit { return &FirstFit{} }

func (f *FirstFit) Init(machines []kernel.Lpid) { f.nextIndex = 0 }

func (f *FirstFit) ForwardAllocate(machines []kernel.Lpid, ev *kernel.Event) (kernel.Lpid, error) {
	if len(machines) == 0 {
		return 0, errs.ErrNoTarget
	}
	bf := ev.Bitfield().SetC0(false)

	selected := machines[f.nextIndex]
	f.nextIndex++
	if f.nextIndex == len(machines) {
		bf = bf.SetC0(true)
		f.nextIndex = 0
	}
	ev.SetBitfield(bf)
	return selected, nil
}

func (f *FirstFit) ReverseAllocate(machines []kernel.Lpid, ev *kernel.Event) {
	if ev.Bitfield().C0() {
		f.nextIndex = len(machines) - 1
	} else {
		f.nextIndex--
	}
}

// FirstFitDecreasing has identical forward/reverse mechanics to FirstFit;
// it only differs in a precondition its caller (the VMM) must uphold: the
// VM list must be sorted by descending resource demand before allocation
// starts. VMSortKey computes that composite key.
type FirstFitDecreasing struct {
	FirstFit
}

func NewFirstFitDecreasing() *FirstFitDecreasing { return &FirstFitDecreasing{} }

// VMSortKey is the composite descending-sort key: cores·M + mem·M +
// disk·M.
func VMSortKey(cores int, mem, disk float64) float64 {
	const multiplier = 100000.0
	return multiplier * (float64(cores) + mem + disk)
}
