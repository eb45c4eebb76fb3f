// Package policy implements the tagged-variant scheduler and allocator
// policies: each variant owns only its own state and exposes
// init/forward/reverse methods, with the per-event bitfield used to
// record which branch a forward call took so reverse is O(1) and doesn't
// need to recompute anything.
package policy

import (
	"fmt"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// Scheduler picks a target Lpid from a candidate list on each Generate
// event, and can exactly undo that pick on rollback.
type Scheduler interface {
	Init(candidates []kernel.Lpid)
	ForwardSelect(candidates []kernel.Lpid, ev *kernel.Event) (kernel.Lpid, error)
	ReverseSelect(candidates []kernel.Lpid, ev *kernel.Event)
}

// RoundRobin cycles through candidates in a fixed circular order.
type RoundRobin struct {
	nextIndex int
}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (r *RoundRobin) Init(candidates []kernel.Lpid) { r.nextIndex = 0 }

func (r *RoundRobin) ForwardSelect(candidates []kernel.Lpid, ev *kernel.Event) (kernel.Lpid, error) {
	if len(candidates) == 0 {
		return 0, errs.ErrNoTarget
	}
	bf := ev.Bitfield().SetC0(false)

	selected := candidates[r.nextIndex]
	r.nextIndex++
	if r.nextIndex == len(candidates) {
		bf = bf.SetC0(true)
		r.nextIndex = 0
	}
	ev.SetBitfield(bf)
	return selected, nil
}

func (r *RoundRobin) ReverseSelect(candidates []kernel.Lpid, ev *kernel.Event) {
	if ev.Bitfield().C0() {
		r.nextIndex = len(candidates) - 1
	} else {
		r.nextIndex--
	}
}

// Workqueue sends a task to whichever machine is free next. freeMachines
// is the FIFO of machines available for dispatch; lastTaken records, in
// LIFO order, the machine handed out by each still-unreversed forward
// call so reverse can push it back exactly.
type Workqueue struct {
	freeMachines []kernel.Lpid // used as a deque: front = index 0
	lastTaken    []kernel.Lpid // used as a stack
}

func NewWorkqueue() *Workqueue { return &Workqueue{} }

func (w *Workqueue) Init(candidates []kernel.Lpid) {
	w.freeMachines = append([]kernel.Lpid(nil), candidates...)
	w.lastTaken = nil
}

func (w *Workqueue) ForwardSelect(candidates []kernel.Lpid, ev *kernel.Event) (kernel.Lpid, error) {
	// The incoming event may carry the id of a machine that just freed
	// up; kernel.NoLpid is the explicit sentinel for "no returning
	// machine".
	if ev.ServiceID != kernel.NoLpid {
		w.freeMachines = append(w.freeMachines, ev.ServiceID)
	}
	if len(w.freeMachines) == 0 {
		return 0, errs.ErrNoTarget
	}

	machine := w.freeMachines[0]
	w.freeMachines = w.freeMachines[1:]
	w.lastTaken = append(w.lastTaken, machine)
	return machine, nil
}

func (w *Workqueue) ReverseSelect(candidates []kernel.Lpid, ev *kernel.Event) {
	if len(w.lastTaken) == 0 {
		panic(fmt.Errorf("%w: Workqueue.ReverseSelect called with empty lastTaken stack", errs.ErrPolicyViolation))
	}
	if ev.ServiceID != kernel.NoLpid {
		w.freeMachines = w.freeMachines[:len(w.freeMachines)-1]
	}
	last := w.lastTaken[len(w.lastTaken)-1]
	w.lastTaken = w.lastTaken[:len(w.lastTaken)-1]
	w.freeMachines = append([]kernel.Lpid{last}, w.freeMachines...)
}
