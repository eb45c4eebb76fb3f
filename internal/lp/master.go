// Package lp implements the logical-process state machines: master, link,
// switch, machine, virtual machine, and VMM, each satisfying
// kernel.Handler with a forward/reverse/commit/finish quartet grounded on
// the original model's per-service structs (original_source/include/ispd/services).
package lp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/model"
	"github.com/ispd-go/ispd-go/internal/policy"
	"github.com/ispd-go/ispd-go/internal/routing"
	"github.com/ispd-go/ispd-go/internal/workload"
)

// Master is the task-submission state machine. It owns no shared state:
// Routes and Users are read-only references into simulation-wide tables.
type Master struct {
	Slaves       []kernel.Lpid
	Scheduler    policy.Scheduler
	Workload     workload.Workload
	Interarrival workload.InterarrivalDistribution
	Routes       *routing.Table
	Users        *model.UserRegistry

	Metrics metrics.MasterMetrics
}

func (m *Master) Init(k *kernel.Kernel, self kernel.Lpid) {
	m.Scheduler.Init(m.Slaves)

	if got := m.Routes.CountRoutes(self); got != uint32(len(m.Slaves)) {
		panic(fmt.Errorf("%w: master %d has %d slaves but %d registered routes", errs.ErrModelMismatch, self, len(m.Slaves), got))
	}

	if m.Workload.Remaining() > 0 {
		rng := k.RNG(self)
		offset := m.Interarrival.ForwardGenerate(rng)
		k.ScheduleLookahead(self, self, k.Lookahead()+offset, &kernel.Event{Kind: kernel.Generate, ServiceID: kernel.NoLpid})
	}
}

func (m *Master) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	switch ev.Kind {
	case kernel.Generate:
		m.forwardGenerate(k, self, ev)
	case kernel.Arrival:
		m.forwardArrival(k, self, ev)
	}
}

func (m *Master) forwardGenerate(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if m.Workload.Remaining() == 0 {
		ev.SetBitfield(ev.Bitfield().SetC1(false))
		return
	}
	ev.SetBitfield(ev.Bitfield().SetC1(true))

	slave, err := m.Scheduler.ForwardSelect(m.Slaves, ev)
	if err != nil {
		panic(err)
	}
	route, err := m.Routes.GetRoute(self, slave)
	if err != nil {
		panic(err)
	}

	rng := k.RNG(self)
	procSize, commSize := m.Workload.ForwardGenerate(rng)

	arrival := &kernel.Event{
		Kind:            kernel.Arrival,
		RouteOffset:     1,
		Downward:        true,
		PreviousService: self,
		ServiceID:       kernel.NoLpid,
		Task: kernel.Task{
			ProcSize:   procSize,
			CommSize:   commSize,
			Offload:    m.Workload.ComputingOffload(),
			Origin:     self,
			Dest:       slave,
			SubmitTime: k.Now(),
			Owner:      m.Workload.Owner(),
		},
	}
	logrus.Debugf("master %d: generated task for slave %d (proc=%.2f comm=%.2f)", self, slave, procSize, commSize)
	k.ScheduleLookahead(self, route.At(0), k.Lookahead(), arrival)
}

func (m *Master) forwardArrival(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	ev.Task.EndTime = k.Now()
	turnaround := ev.Task.EndTime - ev.Task.SubmitTime
	m.Metrics.Complete(turnaround)
	logrus.Debugf("master %d: task from origin %d completed, turnaround=%.4f", self, ev.Task.Origin, turnaround)

	bf := ev.Bitfield().SetC0(false)
	if m.Workload.Remaining() > 0 {
		rng := k.RNG(self)
		offset := m.Interarrival.ForwardGenerate(rng)
		bf = bf.SetC0(true)
		k.ScheduleLookahead(self, self, k.Lookahead()+offset, &kernel.Event{Kind: kernel.Generate, ServiceID: ev.ServiceID})
	}
	ev.SetBitfield(bf)
}

func (m *Master) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	switch ev.Kind {
	case kernel.Generate:
		m.reverseGenerate(k, self, ev)
	case kernel.Arrival:
		m.reverseArrival(k, self, ev)
	}
}

func (m *Master) reverseGenerate(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if !ev.Bitfield().C1() {
		// Forward was a no-op (remaining==0 at the time): nothing to undo.
		return
	}
	rng := k.RNG(self)
	m.Scheduler.ReverseSelect(m.Slaves, ev)
	m.Workload.ReverseGenerate(rng)
}

func (m *Master) reverseArrival(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	turnaround := ev.Task.EndTime - ev.Task.SubmitTime
	m.Metrics.ReverseComplete(turnaround)

	if ev.Bitfield().C0() {
		rng := k.RNG(self)
		m.Interarrival.ReverseGenerate(rng)
	}
}

func (m *Master) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Kind != kernel.Generate || !ev.Bitfield().C1() {
		return
	}
	user, err := m.Users.ByID(m.Workload.Owner())
	if err != nil {
		// A missing user here means model validation failed to catch an
		// unregistered workload owner earlier.
		panic(err)
	}
	user.Metrics.IssuedTasks++
}

func (m *Master) Finish(k *kernel.Kernel, self kernel.Lpid) {}
