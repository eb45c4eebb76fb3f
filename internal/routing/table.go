package routing

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/kernel"
)

// szudzik computes the unique 64-bit pairing key for two 32-bit-range
// unsigned inputs: a≥b ? a²+a+b : a+b².
func szudzik(a, b uint64) uint64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// Table is an immutable-after-load mapping (src, dst) ↦ Route, plus a
// src ↦ count index used for the master's init-time sanity check against
// its registered slave count.
type Table struct {
	routes map[uint64]*Route
	counts map[kernel.Lpid]uint32
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{
		routes: make(map[uint64]*Route),
		counts: make(map[kernel.Lpid]uint32),
	}
}

func key(src, dst kernel.Lpid) uint64 {
	return szudzik(uint64(src), uint64(dst))
}

// Insert adds a route to the table. Inserting a duplicate (src, dst) pair
// overwrites the previous entry, mirroring the original model's "last
// insert wins" bucket-stack semantics.
func (t *Table) Insert(r *Route) {
	k := key(r.From, r.To)
	if _, exists := t.routes[k]; !exists {
		t.counts[r.From]++
	}
	t.routes[k] = r
}

// GetRoute looks up the route from src to dst, failing with ErrNoRoute if
// absent.
func (t *Table) GetRoute(src, dst kernel.Lpid) (*Route, error) {
	r, ok := t.routes[key(src, dst)]
	if !ok {
		return nil, fmt.Errorf("%w: from %d to %d", errs.ErrNoRoute, src, dst)
	}
	return r, nil
}

// CountRoutes returns the number of distinct destinations src has a route
// to, used to sanity-check that a master's registered slave count matches
// its routing-table entries.
func (t *Table) CountRoutes(src kernel.Lpid) uint32 {
	return t.counts[src]
}

// Load parses a routing file: one route per line, "<src> <dst> <h1> ... <hN>\n"
// in ASCII decimal. Blank lines are errors.
func Load(r io.Reader) (*Table, error) {
	t := NewTable()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return nil, fmt.Errorf("routing file line %d: blank lines are not permitted", lineNo)
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("routing file line %d: expected \"<src> <dst> <hop1> ... <hopN>\", got %q", lineNo, line)
		}

		src, err := parseLpid(fields[0])
		if err != nil {
			return nil, fmt.Errorf("routing file line %d: invalid src: %w", lineNo, err)
		}
		dst, err := parseLpid(fields[1])
		if err != nil {
			return nil, fmt.Errorf("routing file line %d: invalid dst: %w", lineNo, err)
		}

		hops := make([]kernel.Lpid, 0, len(fields)-2)
		for _, f := range fields[2:] {
			h, err := parseLpid(f)
			if err != nil {
				return nil, fmt.Errorf("routing file line %d: invalid hop %q: %w", lineNo, f, err)
			}
			hops = append(hops, h)
		}

		t.Insert(&Route{From: src, To: dst, Hops: hops})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading routing file: %w", err)
	}
	return t, nil
}

func parseLpid(s string) (kernel.Lpid, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return kernel.Lpid(v), nil
}
