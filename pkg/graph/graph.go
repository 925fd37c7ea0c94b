// Package graph holds the road network in CSR (Compressed Sparse Row) form
// together with per-edge cost data. Topology is immutable after construction;
// only the capacity ledger (a separate package) carries mutable load state.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// Core scalar types. All costs are travel times in milliseconds, all
// timestamps are milliseconds since midnight.
type (
	NodeID    = uint32
	EdgeID    = uint32
	Weight    = uint32
	Timestamp = uint32
)

const (
	// Infinity marks an unreachable distance.
	Infinity Weight = math.MaxUint32

	// InvalidNode is the sentinel for "no node".
	InvalidNode NodeID = math.MaxUint32

	// DayMs is the period of all time-dependent cost functions.
	DayMs Timestamp = 24 * 3600 * 1000
)

// ErrInvalidEdge is returned for a malformed or dangling edge reference.
var ErrInvalidEdge = errors.New("invalid edge reference")

// Graph is a directed road graph in CSR format. Costs are served either
// from a single free-flow scalar per edge (static mode) or from a periodic
// piecewise-linear travel-time profile (time-dependent mode); the mode is
// fixed at construction.
type Graph struct {
	NumNodes uint32
	NumEdges uint32

	FirstOut []uint32 // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []NodeID // len: NumEdges; target node for each edge

	DistanceM       []uint32 // len: NumEdges; edge length in meters
	FreeflowTime    []Weight // len: NumEdges; unloaded travel time in milliseconds
	CapacityPerHour []uint32 // len: NumEdges; vehicles per hour, 0 = uncapacitated

	NodeLat []float64 // len: NumNodes
	NodeLon []float64 // len: NumNodes

	// Profiles holds one travel-time profile per edge in time-dependent
	// mode. nil in static mode.
	Profiles []Profile
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u NodeID) (start, end EdgeID) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Tail returns the source node of edge e by binary search over FirstOut.
func (g *Graph) Tail(e EdgeID) NodeID {
	lo, hi := uint32(0), g.NumNodes
	for lo < hi {
		mid := (lo + hi) / 2
		if g.FirstOut[mid+1] <= e {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// TimeDependent reports whether the graph serves time-dependent costs.
func (g *Graph) TimeDependent() bool {
	return g.Profiles != nil
}

// CostAt returns the travel time of edge e when entered at time t.
// The caller must pass a valid edge ID; see CheckedCostAt for the
// validating variant.
func (g *Graph) CostAt(e EdgeID, t Timestamp) Weight {
	if g.Profiles != nil {
		if p := &g.Profiles[e]; len(p.Departure) > 0 {
			return p.Eval(t)
		}
	}
	return g.FreeflowTime[e]
}

// CheckedCostAt is CostAt with edge validation, for callers holding
// externally supplied edge IDs.
func (g *Graph) CheckedCostAt(e EdgeID, t Timestamp) (Weight, error) {
	if e >= g.NumEdges {
		return Infinity, fmt.Errorf("edge %d of %d: %w", e, g.NumEdges, ErrInvalidEdge)
	}
	return g.CostAt(e, t), nil
}

// LowerBoundCost returns the smallest travel time edge e can ever have,
// regardless of departure time. Potential customization builds on this.
func (g *Graph) LowerBoundCost(e EdgeID) Weight {
	if g.Profiles != nil {
		if p := &g.Profiles[e]; len(p.Departure) > 0 {
			return p.Min()
		}
	}
	return g.FreeflowTime[e]
}

// UpperBoundCost returns the largest travel time edge e can ever have.
func (g *Graph) UpperBoundCost(e EdgeID) Weight {
	if g.Profiles != nil {
		if p := &g.Profiles[e]; len(p.Departure) > 0 {
			return p.Max()
		}
	}
	return g.FreeflowTime[e]
}

// FindEdge returns the edge index for arc u->v, or InvalidNode if absent.
func (g *Graph) FindEdge(u, v NodeID) EdgeID {
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.Head[e] == v {
			return e
		}
	}
	return InvalidNode
}

// Validate checks CSR invariants and attribute array lengths.
func (g *Graph) Validate() error {
	if uint32(len(g.FirstOut)) != g.NumNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(g.FirstOut), g.NumNodes+1)
	}
	if g.FirstOut[g.NumNodes] != g.NumEdges {
		return fmt.Errorf("FirstOut[NumNodes] %d != NumEdges %d", g.FirstOut[g.NumNodes], g.NumEdges)
	}
	for i := uint32(1); i <= g.NumNodes; i++ {
		if g.FirstOut[i] < g.FirstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d", i)
		}
	}
	if uint32(len(g.Head)) != g.NumEdges {
		return fmt.Errorf("Head length %d != NumEdges %d", len(g.Head), g.NumEdges)
	}
	for i, h := range g.Head {
		if h >= g.NumNodes {
			return fmt.Errorf("Head[%d]=%d out of range: %w", i, h, ErrInvalidEdge)
		}
	}
	for _, arr := range [][]uint32{g.DistanceM, g.FreeflowTime, g.CapacityPerHour} {
		if arr != nil && uint32(len(arr)) != g.NumEdges {
			return fmt.Errorf("attribute length %d != NumEdges %d", len(arr), g.NumEdges)
		}
	}
	if g.Profiles != nil && uint32(len(g.Profiles)) != g.NumEdges {
		return fmt.Errorf("Profiles length %d != NumEdges %d", len(g.Profiles), g.NumEdges)
	}
	return nil
}
