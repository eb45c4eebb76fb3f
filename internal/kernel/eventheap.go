package kernel

import "container/heap"

// envelope is the kernel-internal scheduling wrapper around an Event: it
// carries the destination, timestamp, and the sender/sequence tie-break
// used to keep processing order deterministic. It is not part of the
// domain Event payload itself.
type envelope struct {
	dest      Lpid
	timestamp float64
	sender    Lpid
	seq       uint64
	event     *Event
}

// eventHeap is a priority queue ordered by (timestamp, sender, seq), giving
// deterministic processing order for simultaneous events.
type eventHeap struct {
	items []*envelope
}

func newEventHeap() *eventHeap {
	h := &eventHeap{}
	heap.Init(h)
	return h
}

func (h *eventHeap) Len() int { return len(h.items) }

func (h *eventHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.timestamp != b.timestamp {
		return a.timestamp < b.timestamp
	}
	if a.sender != b.sender {
		return a.sender < b.sender
	}
	return a.seq < b.seq
}

func (h *eventHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *eventHeap) Push(x any) { h.items = append(h.items, x.(*envelope)) }

func (h *eventHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

func (h *eventHeap) schedule(e *envelope) { heap.Push(h, e) }

func (h *eventHeap) popNext() *envelope {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*envelope)
}

func (h *eventHeap) peek() *envelope {
	if h.Len() == 0 {
		return nil
	}
	return h.items[0]
}
