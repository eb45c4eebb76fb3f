package kernel

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ispd-go/ispd-go/internal/errs"
)

// Handler is the {init, forward, reverse, commit, finish} contract every
// LP in this core implements. The kernel hands each call the Lpid it
// concerns and itself, so a handler can schedule further events and read
// its dedicated RNG stream; LP-private state lives inside the concrete
// Handler implementation, never in the kernel.
type Handler interface {
	Init(k *Kernel, self Lpid)
	Forward(k *Kernel, self Lpid, ev *Event)
	Reverse(k *Kernel, self Lpid, ev *Event)
	Commit(k *Kernel, self Lpid, ev *Event)
	Finish(k *Kernel, self Lpid)
}

// execRecord is one entry in an LP's forward-execution history, kept so
// Rollback can invoke Reverse handlers in strict LIFO order.
type execRecord struct {
	event *Event
}

// Kernel is this core's minimal stand-in for the external PDES runtime.
// It is a single-rank, single-threaded sequential scheduler: it processes
// events in non-decreasing timestamp order and supports an explicit
// Rollback call that drives a straggler-style reverse replay, in lieu of a
// real kernel's GVT / cross-rank rollback machinery, which this core does
// not implement.
type Kernel struct {
	handlers  map[Lpid]Handler
	heap      *eventHeap
	clock     float64
	lookahead float64
	rng       *PartitionedRNG
	nextSeq   uint64
	history   map[Lpid][]execRecord
}

// NewKernel creates a Kernel with the given lookahead epsilon and master
// RNG seed.
func NewKernel(lookahead float64, seed int64) *Kernel {
	return &Kernel{
		handlers:  make(map[Lpid]Handler),
		heap:      newEventHeap(),
		lookahead: lookahead,
		rng:       NewPartitionedRNG(seed),
		history:   make(map[Lpid][]execRecord),
	}
}

// Register attaches a Handler to an Lpid. Registering the same Lpid twice
// is a DuplicateService error.
func (k *Kernel) Register(id Lpid, h Handler) error {
	if _, exists := k.handlers[id]; exists {
		return fmt.Errorf("%w: lpid %d already registered", errs.ErrDuplicateService, id)
	}
	k.handlers[id] = h
	return nil
}

// Now returns the kernel's current simulation clock.
func (k *Kernel) Now() float64 { return k.clock }

// Lookahead returns the configured lookahead epsilon.
func (k *Kernel) Lookahead() float64 { return k.lookahead }

// RNG returns the stream dedicated to an LP.
func (k *Kernel) RNG(id Lpid) *Stream { return k.rng.ForLP(id) }

// Schedule enqueues ev for delivery to dest after delay, sent by sender.
// delay must be non-negative; a negative delay is a programming error
// (it would violate the monotonic-clock requirement) and panics.
func (k *Kernel) Schedule(sender, dest Lpid, delay float64, ev *Event) {
	if delay < 0 {
		panic(fmt.Sprintf("kernel: negative delay %f scheduling event to lpid %d", delay, dest))
	}
	k.nextSeq++
	k.heap.schedule(&envelope{
		dest:      dest,
		timestamp: k.clock + delay,
		sender:    sender,
		seq:       k.nextSeq,
		event:     ev,
	})
}

// ScheduleLookahead is Schedule with the lookahead invariant enforced:
// delay must be at least the configured epsilon. The master uses this for
// its Generate self-schedules and outbound task sends; the VMM and the
// link/switch/machine/VM forwarding hops use plain Schedule.
func (k *Kernel) ScheduleLookahead(sender, dest Lpid, delay float64, ev *Event) {
	if delay < k.lookahead {
		panic(fmt.Errorf("%w: delay %f less than lookahead %f from lpid %d to lpid %d",
			errs.ErrLookaheadViolation, delay, k.lookahead, sender, dest))
	}
	k.Schedule(sender, dest, delay, ev)
}

// Run drains the event queue up to and including horizon, calling Forward
// then Commit on each event in turn (this reference kernel never rolls
// back during Run; every processed event is immediately past GVT).
func (k *Kernel) Run(horizon float64) {
	for {
		top := k.heap.peek()
		if top == nil || top.timestamp > horizon {
			return
		}
		env := k.heap.popNext()
		if env.timestamp < k.clock {
			panic(fmt.Sprintf("kernel: clock moved backwards: %f < %f", env.timestamp, k.clock))
		}
		k.clock = env.timestamp

		h, ok := k.handlers[env.dest]
		if !ok {
			logrus.Warnf("kernel: event delivered to unregistered lpid %d, dropped", env.dest)
			continue
		}

		h.Forward(k, env.dest, env.event)
		k.history[env.dest] = append(k.history[env.dest], execRecord{event: env.event})
		h.Commit(k, env.dest, env.event)
	}
}

// Rollback replays the reverse handler for the n most recently forward-
// processed events at lp, in LIFO order, then drops them from history. A
// real kernel's straggler detection is out of scope for this core, but
// the reverse contract it depends on is fully implemented and
// independently testable through this call.
func (k *Kernel) Rollback(lp Lpid, n int) {
	h, ok := k.handlers[lp]
	if !ok {
		return
	}
	hist := k.history[lp]
	for i := 0; i < n && len(hist) > 0; i++ {
		last := hist[len(hist)-1]
		hist = hist[:len(hist)-1]
		h.Reverse(k, lp, last.event)
	}
	k.history[lp] = hist
}

// InitAll calls Init on every registered LP, in ascending Lpid order for
// determinism.
func (k *Kernel) InitAll() {
	for _, id := range k.sortedLpids() {
		k.handlers[id].Init(k, id)
	}
}

// FinishAll calls Finish on every registered LP, in ascending Lpid order.
func (k *Kernel) FinishAll() {
	for _, id := range k.sortedLpids() {
		k.handlers[id].Finish(k, id)
	}
}

func (k *Kernel) sortedLpids() []Lpid {
	ids := make([]Lpid, 0, len(k.handlers))
	for id := range k.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
