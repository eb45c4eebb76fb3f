package lp

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/model"
	"github.com/ispd-go/ispd-go/internal/routing"
)

// Machine is the multi-core queueing and forwarding LP. It also answers
// the VMM's allocation-phase fit checks against its free memory, disk,
// and cores.
type Machine struct {
	Conf    model.MachineConfig
	Routes  *routing.Table
	Metrics metrics.MachineMetrics

	CoresFreeTime []float64
}

func NewMachine(conf model.MachineConfig, routes *routing.Table) *Machine {
	return &Machine{Conf: conf, Routes: routes, CoresFreeTime: make([]float64, conf.CoreCount)}
}

func (m *Machine) Init(k *kernel.Kernel, self kernel.Lpid) {}

// leastCore returns the index of the core with the lowest free time,
// ties broken toward the lowest index.
func (m *Machine) leastCore() int {
	best := 0
	for i := 1; i < len(m.CoresFreeTime); i++ {
		if m.CoresFreeTime[i] < m.CoresFreeTime[best] {
			best = i
		}
	}
	return best
}

func (m *Machine) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Task.Dest != self {
		m.forwardOnly(k, self, ev)
		return
	}
	if ev.IsVM {
		m.forwardVMFit(k, self, ev)
		return
	}
	m.forwardProcess(k, self, ev)
}

func (m *Machine) forwardOnly(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	route, err := m.Routes.GetRoute(ev.Task.Origin, ev.Task.Dest)
	if err != nil {
		panic(err)
	}
	m.Metrics.RecordForward()
	sendTo := route.At(ev.RouteOffset)

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.PreviousService = self
	if ev.Downward {
		next.RouteOffset = ev.RouteOffset + 1
	} else {
		next.RouteOffset = ev.RouteOffset - 1
	}
	logrus.Debugf("machine %d: passing through offset %d to %d", self, ev.RouteOffset, sendTo)
	k.Schedule(self, sendTo, 0, &next)
}

func (m *Machine) forwardProcess(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	core := m.leastCore()
	procTime := m.Conf.TimeToProc(ev.Task.ProcSize)
	waiting := math.Max(0, m.CoresFreeTime[core]-k.Now())
	departure := waiting + procTime

	ev.Saved.CoreIndex = core
	ev.Saved.CoreNextFree = m.CoresFreeTime[core]
	m.Metrics.RecordProc(ev.Task.ProcSize, procTime)
	m.CoresFreeTime[core] = k.Now() + departure

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.Downward = false
	next.TaskProcessed = true
	next.RouteOffset = ev.RouteOffset - 2
	next.PreviousService = self
	logrus.Debugf("machine %d: processing task on core %d, departure=%.4f", self, core, departure)
	k.Schedule(self, ev.PreviousService, departure, &next)
}

func (m *Machine) forwardVMFit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	ev.Saved.MachineMemBefore = m.Conf.AvailableMem
	ev.Saved.MachineDiskBefore = m.Conf.AvailableDisk
	ev.Saved.MachineCoresBefore = m.Conf.AvailableCores

	fits := ev.VMMem <= m.Conf.AvailableMem &&
		ev.VMDisk <= m.Conf.AvailableDisk &&
		ev.VMCores <= m.Conf.AvailableCores

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.Downward = false
	next.RouteOffset = ev.RouteOffset - 2
	next.PreviousService = self
	next.VMFit = fits

	if fits {
		m.Conf.AvailableMem -= ev.VMMem
		m.Conf.AvailableDisk -= ev.VMDisk
		m.Conf.AvailableCores -= ev.VMCores
		next.AllocatedIn = self
	} else {
		next.AllocatedIn = kernel.NoLpid
	}

	logrus.Debugf("machine %d: vm %d fit=%v", self, ev.VMId, fits)
	k.Schedule(self, ev.PreviousService, 0, &next)
}

func (m *Machine) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	if ev.Task.Dest != self {
		m.Metrics.ReverseForward()
		return
	}
	if ev.IsVM {
		m.Conf.AvailableMem = ev.Saved.MachineMemBefore
		m.Conf.AvailableDisk = ev.Saved.MachineDiskBefore
		m.Conf.AvailableCores = ev.Saved.MachineCoresBefore
		return
	}
	procTime := m.Conf.TimeToProc(ev.Task.ProcSize)
	m.CoresFreeTime[ev.Saved.CoreIndex] = ev.Saved.CoreNextFree
	m.Metrics.ReverseProc(ev.Task.ProcSize, procTime)
}

func (m *Machine) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {}

func (m *Machine) Finish(k *kernel.Kernel, self kernel.Lpid) {}
