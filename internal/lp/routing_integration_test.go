package lp

import (
	"testing"

	"github.com/ispd-go/ispd-go/internal/kernel"
	"github.com/ispd-go/ispd-go/internal/model"
	"github.com/ispd-go/ispd-go/internal/policy"
	"github.com/ispd-go/ispd-go/internal/routing"
	"github.com/ispd-go/ispd-go/internal/workload"
)

// visitSpy wraps a real kernel.Handler and records, in call order, the Lpid
// it was invoked at. Since the kernel only calls Forward(k, self, ev) when
// an envelope's destination equals self, a name appearing in the log is
// direct evidence that some earlier hop scheduled an event addressed to
// that Lpid — not just that a counter incremented.
type visitSpy struct {
	kernel.Handler
	name string
	log  *[]string
}

func (s *visitSpy) Forward(k *kernel.Kernel, self kernel.Lpid, ev *kernel.Event) {
	*s.log = append(*s.log, s.name)
	s.Handler.Forward(k, self, ev)
}

const (
	masterLpid kernel.Lpid = 1
	link1Lpid  kernel.Lpid = 10
	switchLpid kernel.Lpid = 20
	link2Lpid  kernel.Lpid = 30
	machLpid   kernel.Lpid = 40
)

// buildChain wires Master(1) -> Link(10) -> Switch(20) -> Link(30) ->
// Machine(40) into a fresh kernel, mirroring the shape master.go's
// route.At(0)/RouteOffset:1 convention expects: the routing table's Hops
// list every address a forwarder must resolve dynamically (the two links'
// own endpoints, and the final machine), while the switch is reached
// through Link(10)'s fixed wiring rather than through the Hops list.
func buildChain(t *testing.T) (*kernel.Kernel, *[]string, *Master, *Machine) {
	t.Helper()

	rt := routing.NewTable()
	rt.Insert(&routing.Route{From: masterLpid, To: machLpid, Hops: []kernel.Lpid{link1Lpid, link2Lpid, machLpid}})

	var log []string

	users := model.NewUserRegistry()
	owner, err := users.Register("alice", 0)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	fixed, err := workload.NewConstantWorkload(owner, 1, 100, 50, 0)
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	interarrival, err := workload.NewFixed(10)
	if err != nil {
		t.Fatalf("interarrival: %v", err)
	}

	master := &Master{
		Slaves:       []kernel.Lpid{machLpid},
		Scheduler:    policy.NewRoundRobin(),
		Workload:     fixed,
		Interarrival: interarrival,
		Routes:       rt,
		Users:        users,
	}
	link1 := &Link{From: masterLpid, To: switchLpid, Conf: model.LinkConfig{Bandwidth: 1000, Load: 0, Latency: 0}}
	sw := &Switch{Conf: model.SwitchConfig{Bandwidth: 1000, Load: 0, Latency: 0}, Routes: rt}
	link2 := &Link{From: switchLpid, To: machLpid, Conf: model.LinkConfig{Bandwidth: 1000, Load: 0, Latency: 0}}
	machine := NewMachine(model.MachineConfig{Power: 1000, Load: 0, CoreCount: 1, WattageIdle: 1, WattageMax: 2}, rt)

	k := kernel.NewKernel(0, 1)
	regs := []struct {
		id kernel.Lpid
		h  kernel.Handler
	}{
		{masterLpid, &visitSpy{Handler: master, name: "master", log: &log}},
		{link1Lpid, &visitSpy{Handler: link1, name: "link1", log: &log}},
		{switchLpid, &visitSpy{Handler: sw, name: "switch", log: &log}},
		{link2Lpid, &visitSpy{Handler: link2, name: "link2", log: &log}},
		{machLpid, &visitSpy{Handler: machine, name: "machine", log: &log}},
	}
	for _, r := range regs {
		if err := k.Register(r.id, r.h); err != nil {
			t.Fatalf("register %d: %v", r.id, err)
		}
	}
	return k, &log, master, machine
}

// TestMultiHopRoute_MasterLinkSwitchLinkMachine exercises the full
// Master->Link->Switch->Link->Machine path through a real kernel.Kernel,
// asserting both the order of Lpids an event is actually delivered to and
// that the round trip completes without skipping a hop or indexing past
// the end of the route's hop list.
func TestMultiHopRoute_MasterLinkSwitchLinkMachine(t *testing.T) {
	k, log, master, machine := buildChain(t)

	k.InitAll()
	k.Run(100)

	want := []string{"master", "link1", "switch", "link2", "machine", "link2", "switch", "link1", "master"}
	if len(*log) != len(want) {
		t.Fatalf("expected visit order %v, got %v", want, *log)
	}
	for i, name := range want {
		if (*log)[i] != name {
			t.Fatalf("expected visit order %v, got %v", want, *log)
		}
	}

	if machine.Metrics.ProcTasks != 1 {
		t.Fatalf("expected the machine to process exactly one task, got %d", machine.Metrics.ProcTasks)
	}
	if master.Metrics.CompletedTasks != 1 {
		t.Fatalf("expected the master to see exactly one completed task, got %d", master.Metrics.CompletedTasks)
	}
}

// TestMultiHopRoute_SwitchNeverSkipsAHop pins down the bug this suite
// exists to catch: a switch indexing the route with its post-update
// offset instead of the incoming one would jump straight from link1 to
// the machine, skipping link2 entirely.
func TestMultiHopRoute_SwitchNeverSkipsAHop(t *testing.T) {
	k, log, _, _ := buildChain(t)
	k.InitAll()
	k.Run(100)

	found := false
	for i := 0; i+1 < len(*log); i++ {
		if (*log)[i] == "switch" && (*log)[i+1] == "link2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected switch to forward to link2 immediately after receiving the event, got order %v", *log)
	}
}

// TestRoute_LengthOneNeverGoesNegative covers the boundary case where a
// route has a single hop: At(0) must resolve without panicking, and a
// forwarder decrementing past offset 0 on the return leg (as the switch
// and machine passthrough both do) must not cause a later At call to
// index out of range, since nothing downstream re-reads that offset for
// addressing once the return trip is routed by PreviousService instead.
func TestRoute_LengthOneNeverGoesNegative(t *testing.T) {
	r := &routing.Route{From: 1, To: 2, Hops: []kernel.Lpid{2}}
	if r.Len() != 1 {
		t.Fatalf("expected route length 1, got %d", r.Len())
	}
	if got := r.At(0); got != 2 {
		t.Fatalf("expected At(0) to resolve to lpid 2, got %d", got)
	}

	k := kernel.NewKernel(0, 1)
	sw := &Switch{Conf: model.SwitchConfig{Bandwidth: 100, Load: 0, Latency: 0}, Routes: func() *routing.Table {
		tb := routing.NewTable()
		tb.Insert(r)
		return tb
	}()}
	_ = k.Register(2, sw)

	defer func() {
		if rec := recover(); rec != nil {
			t.Fatalf("expected no panic forwarding the return leg of a length-1 route, got %v", rec)
		}
	}()

	ev := &kernel.Event{
		Kind:        kernel.Arrival,
		Task:        kernel.Task{Origin: 1, Dest: 2, CommSize: 10},
		Downward:    false,
		RouteOffset: 0,
	}
	sw.Forward(k, 2, ev)
	if sw.Metrics.Packets != 1 {
		t.Fatalf("expected the packet to be recorded, got %d", sw.Metrics.Packets)
	}
}
