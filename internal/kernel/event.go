package kernel

// EventKind discriminates the two message shapes every LP in this core
// exchanges.
type EventKind uint8

const (
	// Generate is a self-addressed event telling a master/VMM to emit a
	// new task (or VM allocation) into the topology.
	Generate EventKind = iota
	// Arrival is a task (or VM) arriving at, passing through, or
	// returning from a link/switch/machine/VM/VMM.
	Arrival
)

func (k EventKind) String() string {
	switch k {
	case Generate:
		return "Generate"
	case Arrival:
		return "Arrival"
	default:
		return "Unknown"
	}
}

// ReverseScratch holds values a forward handler saves so its mirror
// reverse handler can restore LP state exactly, without recomputing
// anything from RNG or external state. Each LP touches only the field(s)
// relevant to it.
type ReverseScratch struct {
	// LinkNextFree is the link's pre-forward next-free-time for the
	// direction the event traveled.
	LinkNextFree float64

	// CoreIndex/CoreNextFree are the machine/VM core dispatched to, and
	// its pre-forward free time.
	CoreIndex    int
	CoreNextFree float64

	// MachineMemBefore/DiskBefore/CoresBefore are the machine's
	// available resources before a VM-fit debit.
	MachineMemBefore   float64
	MachineDiskBefore  float64
	MachineCoresBefore int

	// ReturningService is a slot for the Lpid of "the machine that just
	// freed up". No handler in this core writes it: Workqueue's reverse
	// reads the event's ServiceID directly.
	ReturningService Lpid
}

// Event is the single tagged envelope carrying a task and routing state
// between LPs. It is owned by the kernel while in flight; handlers
// read/write it but never retain a pointer past their own invocation.
type Event struct {
	Kind EventKind
	Task Task

	// RouteOffset indexes into the Route between Task.Origin and
	// Task.Dest (for VM allocation events, Task.Origin is the allocating
	// VMM and Task.Dest the chosen machine).
	RouteOffset uint32

	// Downward is true while traveling master/VMM → slave, false on the
	// return trip.
	Downward bool

	// TaskProcessed is true once a machine or VM has actually run the
	// task (as opposed to merely forwarding it).
	TaskProcessed bool

	// PreviousService is the Lpid the event was most recently sent from;
	// used to route the reply back the way it came.
	PreviousService Lpid

	// ServiceID is the Lpid of a machine the scheduler should treat as
	// "newly free" (Workqueue), or NoLpid if this event carries none.
	ServiceID Lpid

	// IsVM is true for VMM allocation-phase events carrying a VM
	// descriptor rather than a task.
	IsVM bool
	// VMFit is the machine's fit/reject verdict on a VM allocation
	// request, valid on the return leg of an IsVM event.
	VMFit bool
	VMId  Lpid
	// VMMem/VMDisk/VMCores describe the VM being allocated.
	VMMem   float64
	VMDisk  float64
	VMCores int
	// AllocatedIn is the machine Lpid a VM was placed on, set by the
	// machine on a fit verdict.
	AllocatedIn Lpid

	// Saved is the reverse-computation scratch for whichever LP last
	// forward-processed this event.
	Saved ReverseScratch

	// bitfield is the per-event rollback annotation policies write to
	// steer their reverse. Exported via Bitfield()/SetBitfield() so LP
	// code reads/writes it uniformly.
	bitfield Bitfield
}

// Bitfield returns the event's rollback scratch bits.
func (e *Event) Bitfield() Bitfield { return e.bitfield }

// SetBitfield overwrites the event's rollback scratch bits.
func (e *Event) SetBitfield(b Bitfield) { e.bitfield = b }
