package cch

import (
	"fmt"
	"log"
	"sort"

	"github.com/azybler/coop_router/pkg/graph"
)

// Topology is the weight-independent part of the hierarchy: the chordal
// supergraph induced by an elimination order, in rank space. Every arc runs
// from a lower rank to a higher rank; customization fills in its weights.
type Topology struct {
	NumNodes uint32

	Order Order    // rank -> original node
	Rank  []uint32 // original node -> rank

	// Up arcs in rank space, CSR indexed by the lower endpoint, heads
	// sorted ascending per node.
	FirstOut []uint32
	Head     []uint32

	// Elimination tree: parent in rank space, graph.InvalidNode for roots.
	Parent []uint32

	// Original edge behind each arc, per direction, graph.InvalidNode if
	// the arc is pure fill-in (or has no arc in that direction).
	// FwdEdge[i] is the edge order[u] -> order[v], BwdEdge[i] the reverse.
	FwdEdge []graph.EdgeID
	BwdEdge []graph.EdgeID
}

// NumArcs returns the number of up arcs.
func (t *Topology) NumArcs() uint32 {
	return uint32(len(t.Head))
}

// ArcsFrom returns the arc index range for rank-space node u.
func (t *Topology) ArcsFrom(u uint32) (start, end uint32) {
	return t.FirstOut[u], t.FirstOut[u+1]
}

// FindArc returns the index of arc (u, v) in rank space, u < v, or
// graph.InvalidNode if absent. Heads are sorted, so this is a binary search.
func (t *Topology) FindArc(u, v uint32) uint32 {
	start, end := t.ArcsFrom(u)
	lo, hi := start, end
	for lo < hi {
		mid := (lo + hi) / 2
		if t.Head[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < end && t.Head[lo] == v {
		return lo
	}
	return graph.InvalidNode
}

// BuildTopology runs the bottom-up elimination pass: for each node removed
// in order, every pair of its still-present neighbors receives a fill-in
// arc. The result preserves, for any two nodes, a minimum-weight up-down
// path equal to the true shortest path once weights are customized.
func BuildTopology(g *graph.Graph, order Order) (*Topology, error) {
	n := g.NumNodes
	if err := order.Validate(n); err != nil {
		return nil, err
	}

	rank := order.Ranks()

	// Up-neighbor sets in rank space.
	up := make([]map[uint32]struct{}, n)
	for u := uint32(0); u < n; u++ {
		up[u] = make(map[uint32]struct{})
	}

	addArc := func(a, b uint32) {
		if a > b {
			a, b = b, a
		}
		up[a][b] = struct{}{}
	}

	for x := graph.NodeID(0); x < n; x++ {
		start, end := g.EdgesFrom(x)
		for e := start; e < end; e++ {
			y := g.Head[e]
			if y != x {
				addArc(rank[x], rank[y])
			}
		}
	}

	// Elimination: clique the up-neighbors of each node, bottom-up.
	var fillIn uint64
	for u := uint32(0); u < n; u++ {
		neighbors := make([]uint32, 0, len(up[u]))
		for v := range up[u] {
			neighbors = append(neighbors, v)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				a, b := neighbors[i], neighbors[j]
				if _, ok := up[a][b]; !ok {
					up[a][b] = struct{}{}
					fillIn++
				}
			}
		}
	}

	// Flatten into CSR with sorted heads; derive the elimination tree.
	topo := &Topology{
		NumNodes: n,
		Order:    order,
		Rank:     rank,
		FirstOut: make([]uint32, n+1),
		Parent:   make([]uint32, n),
	}

	var totalArcs uint32
	for u := uint32(0); u < n; u++ {
		totalArcs += uint32(len(up[u]))
	}
	topo.Head = make([]uint32, 0, totalArcs)

	for u := uint32(0); u < n; u++ {
		topo.FirstOut[u] = uint32(len(topo.Head))

		heads := make([]uint32, 0, len(up[u]))
		for v := range up[u] {
			heads = append(heads, v)
		}
		sort.Slice(heads, func(i, j int) bool { return heads[i] < heads[j] })
		topo.Head = append(topo.Head, heads...)

		if len(heads) > 0 {
			topo.Parent[u] = heads[0] // lowest-ranked up-neighbor
		} else {
			topo.Parent[u] = graph.InvalidNode
		}
	}
	topo.FirstOut[n] = uint32(len(topo.Head))

	// Map original edges onto arcs.
	topo.FwdEdge = make([]graph.EdgeID, len(topo.Head))
	topo.BwdEdge = make([]graph.EdgeID, len(topo.Head))
	for i := range topo.FwdEdge {
		topo.FwdEdge[i] = graph.InvalidNode
		topo.BwdEdge[i] = graph.InvalidNode
	}

	for x := graph.NodeID(0); x < n; x++ {
		start, end := g.EdgesFrom(x)
		for e := start; e < end; e++ {
			y := g.Head[e]
			if y == x {
				continue
			}
			rx, ry := rank[x], rank[y]
			if rx < ry {
				arc := topo.FindArc(rx, ry)
				if arc == graph.InvalidNode {
					return nil, fmt.Errorf("edge %d->%d lost during elimination: %w", x, y, ErrInconsistentRank)
				}
				topo.FwdEdge[arc] = e
			} else {
				arc := topo.FindArc(ry, rx)
				if arc == graph.InvalidNode {
					return nil, fmt.Errorf("edge %d->%d lost during elimination: %w", x, y, ErrInconsistentRank)
				}
				topo.BwdEdge[arc] = e
			}
		}
	}

	if n > 100000 {
		log.Printf("Hierarchy topology: %d nodes, %d arcs (%d fill-in)", n, len(topo.Head), fillIn)
	}

	return topo, nil
}

// validateRanks checks the rank invariant on every arc. Customization calls
// this before trusting an externally constructed topology.
func (t *Topology) validateRanks() error {
	for u := uint32(0); u < t.NumNodes; u++ {
		start, end := t.ArcsFrom(u)
		for i := start; i < end; i++ {
			if t.Head[i] <= u {
				return fmt.Errorf("arc %d->%d: %w", u, t.Head[i], ErrInconsistentRank)
			}
		}
	}
	return nil
}
