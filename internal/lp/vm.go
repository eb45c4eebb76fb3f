package lp

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/metrics"
	"github.com/ispd-go/ispd-go/internal/model"
)

// VirtualMachine is the guest execution engine LP: the same per-core
// queueing discipline as Machine, but every task is processed locally and
// returned; a VM never forwards. User-visible processing metrics are only
// ever touched in Commit, grounded on the original model's
// virtual_machine.hpp commit handler.
type VirtualMachine struct {
	Conf    model.VmConfig
	Users   *model.UserRegistry
	Metrics metrics.VMMetrics

	CoresFreeTime []float64
}

func NewVirtualMachine(conf model.VmConfig, users *model.UserRegistry) *VirtualMachine {
	return &VirtualMachine{Conf: conf, Users: users, CoresFreeTime: make([]float64, conf.CoreCount)}
}

func (v *VirtualMachine) Init(k *kernel.Kernel, self kernel.Lpid) {}

func (v *VirtualMachine) leastCore() int {
	best := 0
	for i := 1; i < len(v.CoresFreeTime); i++ {
		if v.CoresFreeTime[i] < v.CoresFreeTime[best] {
			best = i
		}
	}
	return best
}

func (v *VirtualMachine) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	core := v.leastCore()
	procTime := v.Conf.TimeToProc(ev.Task.ProcSize)
	waiting := math.Max(0, v.CoresFreeTime[core]-k.Now())
	departure := waiting + procTime

	ev.Saved.CoreIndex = core
	ev.Saved.CoreNextFree = v.CoresFreeTime[core]
	v.Metrics.RecordProc(ev.Task.ProcSize, procTime)
	v.CoresFreeTime[core] = k.Now() + departure

	next := *ev
	next.Saved = kernel.ReverseScratch{}
	next.SetBitfield(0)
	next.Downward = false
	next.TaskProcessed = true
	next.RouteOffset = ev.RouteOffset - 2
	next.PreviousService = self
	logrus.Debugf("vm %d: processing task on core %d, departure=%.4f", self, core, departure)
	k.Schedule(self, ev.PreviousService, departure, &next)
}

func (v *VirtualMachine) Reverse(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	procTime := v.Conf.TimeToProc(ev.Task.ProcSize)
	v.CoresFreeTime[ev.Saved.CoreIndex] = ev.Saved.CoreNextFree
	v.Metrics.ReverseProc(ev.Task.ProcSize, procTime)
}

func (v *VirtualMachine) Commit(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	procTime := v.Conf.TimeToProc(ev.Task.ProcSize)
	waiting := math.Max(0, ev.Saved.CoreNextFree-k.Now())

	user, err := v.Users.ByID(ev.Task.Owner)
	if err != nil {
		panic(err)
	}
	user.Metrics.ProcTime += procTime
	user.Metrics.ProcWaitingTime += waiting
	user.Metrics.CompletedTasks++
}

func (v *VirtualMachine) Finish(k *kernel.Kernel, self kernel.Lpid) {}
