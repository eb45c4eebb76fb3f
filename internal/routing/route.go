// Package routing implements the static multi-hop routing table: loading
// whitespace-separated route lines, keying them by a szudzik pairing
// function, and looking them up by (src, dst).
package routing

import "github.com/ispd-go/ispd-go/internal/kernel"

// Route is an ordered, non-empty sequence of Lpids from source to
// destination. path[0] is the first hop; path[len-1] is the destination.
type Route struct {
	From, To kernel.Lpid
	Hops     []kernel.Lpid
}

// At returns the hop at offset. Callers increment the offset while moving
// outbound and decrement it on the return leg.
func (r Route) At(offset uint32) kernel.Lpid {
	return r.Hops[offset]
}

// Len returns the number of hops in the route.
func (r Route) Len() int { return len(r.Hops) }
