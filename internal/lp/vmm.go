package lp

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/policy"
	"github.com/ispd-go/ispd-go/internal/routing"
	"github.com/ispd-go/ispd-go/internal/workload"
)

// SlaveVM is a VM descriptor awaiting placement, drawn from the head of
// VMM.VMs during the allocation phase.
type SlaveVM struct {
	ID        kernel.Lpid
	Mem, Disk float64
	Cores     int
}

// VMM is the two-phase allocation-then-scheduling LP. Bitfield usage on
// its own Generate/Arrival events (distinct per event
// instance, so no cross-LP collision): on Generate events c0 is owned by
// the allocator/scheduler policy passed the event, and on VM-allocation
// Arrival events c0 marks the phase-transition interarrival draw and
// self-schedule; c1 marks whether a Generate
// drew (and must reverse) an interarrival offset; c2 marks which phase
// branch a Generate took, read back at reverse time since vmsToAllocate
// may have moved on by then.
type VMM struct {
	VMs          []SlaveVM
	AllocatedVMs []kernel.Lpid
	Machines     []kernel.Lpid
	Owner        map[kernel.Lpid]kernel.Lpid

	Scheduler    policy.Scheduler
	Allocator    policy.Allocator
	Workload     workload.Workload
	Interarrival workload.InterarrivalDistribution
	Routes       *routing.Table

	TotalVMs      int
	vmsToAllocate int

	Metrics metrics.VMMMetrics
}

func (m *VMM) Init(k *kernel.Kernel, self kernel.Lpid) {
	m.vmsToAllocate = len(m.VMs)
	m.TotalVMs = m.vmsToAllocate
	m.Owner = make(map[kernel.Lpid]kernel.Lpid)
	m.Allocator.Init(m.Machines)
	m.Scheduler.Init(nil)

	k.Schedule(self, self, 0, &kernel.Event{Kind: kernel.Generate, ServiceID: kernel.NoLpid})
}

func (m *VMM) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	switch ev.Kind {
	case kernel.Generate:
		if m.vmsToAllocate > 0 {
			ev.SetBitfield(ev.Bitfield().SetC2(true))
			m.forwardAllocate(k, self, ev)
		} else {
			ev.SetBitfield(ev.Bitfield().SetC2(false))
			m.forwardSchedule(k, self, ev)
		}
	case kernel.Arrival:
		m.forwardArrival(k, self, ev)
	}
}

func (m *VMM) forwardAllocate(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	machine, err := m.Allocator.ForwardAllocate(m.Machines, ev)
	if err != nil {
		panic(err)
	}
	route, err := m.Routes.GetRoute(self, machine)
	if err != nil {
		panic(err)
	}

	vm := m.VMs[0]
	m.VMs = m.VMs[1:]
	m.vmsToAllocate--
	// Stash the popped descriptor on the Generate event itself so a later
	// ReverseGenerate can restore it to the head of VMs without needing to
	// recompute anything.
	ev.VMId, ev.VMMem, ev.VMDisk, ev.VMCores = vm.ID, vm.Mem, vm.Disk, vm.Cores

	arrival := &kernel.Event{
		Kind:            kernel.Arrival,
		RouteOffset:     1,
		Downward:        true,
		PreviousService: self,
		ServiceID:       kernel.NoLpid,
		IsVM:            true,
		VMId:            vm.ID,
		VMMem:           vm.Mem,
		VMDisk:          vm.Disk,
		VMCores:         vm.Cores,
		Task: kernel.Task{
			Origin:     self,
			Dest:       machine,
			SubmitTime: k.Now(),
		},
	}
	logrus.Debugf("vmm %d: allocating vm %d to machine %d", self, vm.ID, machine)
	k.Schedule(self, route.At(0), 0, arrival)

	bf := ev.Bitfield().SetC1(false)
	if m.vmsToAllocate > 0 {
		rng := k.RNG(self)
		offset := m.Interarrival.ForwardGenerate(rng)
		bf = bf.SetC1(true)
		k.Schedule(self, self, offset, &kernel.Event{Kind: kernel.Generate, ServiceID: kernel.NoLpid})
	}
	ev.SetBitfield(bf)
}

func (m *VMM) forwardSchedule(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	vmID, err := m.Scheduler.ForwardSelect(m.AllocatedVMs, ev)
	if err != nil {
		panic(err)
	}
	machine, ok := m.Owner[vmID]
	if !ok {
		panic(fmt.Errorf("%w: vm %d has no recorded owner machine", errs.ErrUnknownVmOwner, vmID))
	}
	route, err := m.Routes.GetRoute(self, machine)
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
		IsVM:            false,
		VMId:            vmID,
		Task: kernel.Task{
			ProcSize:   procSize,
			CommSize:   commSize,
			Offload:    m.Workload.ComputingOffload(),
			Origin:     self,
			Dest:       machine,
			SubmitTime: k.Now(),
			Owner:      m.Workload.Owner(),
		},
	}
	logrus.Debugf("vmm %d: scheduling task on vm %d at machine %d", self, vmID, machine)
	k.Schedule(self, route.At(0), 0, arrival)

	bf := ev.Bitfield().SetC1(false)
	if m.Workload.Remaining() > 0 {
		offset := m.Interarrival.ForwardGenerate(rng)
		bf = bf.SetC1(true)
		k.Schedule(self, self, offset, &kernel.Event{Kind: kernel.Generate, ServiceID: kernel.NoLpid})
	}
	ev.SetBitfield(bf)
}

func (m *VMM) forwardArrival(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if !ev.IsVM {
		ev.Task.EndTime = k.Now()
		turnaround := ev.Task.EndTime - ev.Task.SubmitTime
		m.Metrics.RecordTask(turnaround)
		return
	}

	if ev.VMFit {
		m.AllocatedVMs = append(m.AllocatedVMs, ev.VMId)
		m.Owner[ev.VMId] = ev.AllocatedIn
		m.Metrics.RecordAlloc()
		logrus.Debugf("vmm %d: vm %d allocated on machine %d", self, ev.VMId, ev.AllocatedIn)
	} else {
		m.Metrics.RecordReject()
		logrus.Debugf("vmm %d: vm %d rejected, no machine had capacity", self, ev.VMId)
	}

	bf := ev.Bitfield().SetC0(false)
	if int(m.Metrics.VmsAlloc+m.Metrics.VmsRejected) == m.TotalVMs {
		rng := k.RNG(self)
		offset := m.Interarrival.ForwardGenerate(rng)
		bf = bf.SetC0(true)
		k.Schedule(self, self, offset, &kernel.Event{Kind: kernel.Generate, ServiceID: kernel.NoLpid})
	}
	ev.SetBitfield(bf)
}

func (m *VMM) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	switch ev.Kind {
	case kernel.Generate:
		if ev.Bitfield().C2() {
			m.reverseAllocate(k, self, ev)
		} else {
			m.reverseSchedule(k, self, ev)
		}
	case kernel.Arrival:
		m.reverseArrival(k, self, ev)
	}
}

func (m *VMM) reverseAllocate(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Bitfield().C1() {
		rng := k.RNG(self)
		m.Interarrival.ReverseGenerate(rng)
	}
	m.Allocator.ReverseAllocate(m.Machines, ev)

	popped := SlaveVM{ID: ev.VMId, Mem: ev.VMMem, Disk: ev.VMDisk, Cores: ev.VMCores}
	m.VMs = append([]SlaveVM{popped}, m.VMs...)
	m.vmsToAllocate++
}

func (m *VMM) reverseSchedule(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Bitfield().C1() {
		rng := k.RNG(self)
		m.Interarrival.ReverseGenerate(rng)
	}
	rng := k.RNG(self)
	m.Scheduler.ReverseSelect(m.AllocatedVMs, ev)
	m.Workload.ReverseGenerate(rng)
}

func (m *VMM) reverseArrival(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if !ev.IsVM {
		turnaround := ev.Task.EndTime - ev.Task.SubmitTime
		m.Metrics.ReverseTask(turnaround)
		return
	}

	if ev.Bitfield().C0() {
		rng := k.RNG(self)
		m.Interarrival.ReverseGenerate(rng)
	}
	if ev.VMFit {
		m.AllocatedVMs = m.AllocatedVMs[:len(m.AllocatedVMs)-1]
		delete(m.Owner, ev.VMId)
		m.Metrics.ReverseAlloc()
	} else {
		m.Metrics.ReverseReject()
	}
}

func (m *VMM) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {}

func (m *VMM) Finish(k *kernel.Kernel, self kernel.Lpid) {}
