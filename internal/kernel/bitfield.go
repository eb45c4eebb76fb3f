package kernel

// Bitfield is the per-event rollback scratch a forward handler writes to
// steer its mirror reverse handler. 32 bits is ample for this core's
// needs; each component documents which bit indices its handlers may
// touch.
//
// Bit assignments in this core:
//   - bit 0 (c0): RoundRobin / FirstFit wrap-around flag on the Generate
//     event a policy selects for; on master and VMM Arrival events, marks
//     that the handler drew an interarrival offset and self-scheduled the
//     next Generate.
//   - bit 1 (c1): LP-level "did this forward handler actually act" flag,
//     used where a forward handler may be a no-op (e.g. master Generate
//     with no remaining tasks) and reverse must skip undoing it; on VMM
//     Generate events, marks that an interarrival offset was drawn.
//   - bit 2 (c2): VMM Generate phase branch (set for allocation, clear for
//     scheduling).
type Bitfield uint32

const (
	bitC0 = 1 << 0
	bitC1 = 1 << 1
	bitC2 = 1 << 2
)

// C0 reads the c0 rollback bit.
func (b Bitfield) C0() bool { return b&bitC0 != 0 }

// SetC0 sets or clears the c0 rollback bit, returning the updated value.
func (b Bitfield) SetC0(v bool) Bitfield {
	if v {
		return b | bitC0
	}
	return b &^ bitC0
}

// C1 reads the c1 rollback bit.
func (b Bitfield) C1() bool { return b&bitC1 != 0 }

// SetC1 sets or clears the c1 rollback bit, returning the updated value.
func (b Bitfield) SetC1(v bool) Bitfield {
	if v {
		return b | bitC1
	}
	return b &^ bitC1
}

// C2 reads the c2 rollback bit.
func (b Bitfield) C2() bool { return b&bitC2 != 0 }

// SetC2 sets or clears the c2 rollback bit, returning the updated value.
func (b Bitfield) SetC2(v bool) Bitfield {
	if v {
		return b | bitC2
	}
	return b &^ bitC2
}
