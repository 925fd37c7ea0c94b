// Package engine runs goal-directed best-first searches over the road graph,
// scoring edges through the capacity ledger and guiding the expansion with a
// potential provider. The engine never mutates the ledger; committing an
// accepted route is the caller's explicit step.
package engine

import (
	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/ledger"
	"github.com/azybler/coop_router/pkg/potential"
)

// Result is the outcome of one query. A query that cannot reach its
// destination is infeasible, which is a normal result, not an error.
type Result struct {
	Found bool
	Path  []graph.EdgeID // edges from origin to destination, empty if origin == destination
	Cost  graph.Weight
}

// Engine holds reusable per-worker search state. Not safe for concurrent
// use; give each worker its own instance.
type Engine struct {
	g *graph.Graph

	dist     []graph.Weight
	predEdge []graph.EdgeID
	touched  []graph.NodeID
	pq       minHeap
}

// New creates an engine over g.
func New(g *graph.Graph) *Engine {
	dist := make([]graph.Weight, g.NumNodes)
	predEdge := make([]graph.EdgeID, g.NumNodes)
	for i := range dist {
		dist[i] = graph.Infinity
	}
	return &Engine{
		g:        g,
		dist:     dist,
		predEdge: predEdge,
		touched:  make([]graph.NodeID, 0, 1024),
	}
}

// reset clears only the touched entries for fast reuse.
func (e *Engine) reset() {
	for _, node := range e.touched {
		e.dist[node] = graph.Infinity
	}
	e.touched = e.touched[:0]
	e.pq.reset()
}

// Query finds the cheapest route from origin to destination when departing
// at the given time, reading edge costs through the ledger at each node's
// arrival time. Priorities are g+h with FIFO tie-breaking; the search
// terminates Found when the destination is popped from the frontier and
// Infeasible when the frontier empties.
func (e *Engine) Query(pot potential.Potential, led *ledger.Ledger, origin, destination graph.NodeID, departure graph.Timestamp) Result {
	if origin >= e.g.NumNodes || destination >= e.g.NumNodes {
		return Result{}
	}

	pot.Bind(origin, destination, departure)

	e.reset()
	e.dist[origin] = 0
	e.touched = append(e.touched, origin)
	e.pq.push(origin, 0, pot.LowerBound(origin))

	for e.pq.len() > 0 {
		item := e.pq.pop()
		u := item.node
		if item.dist > e.dist[u] {
			continue // stale entry
		}
		if u == destination {
			return Result{Found: true, Path: e.buildPath(origin, destination), Cost: e.dist[u]}
		}

		entry := departure + e.dist[u]
		start, end := e.g.EdgesFrom(u)
		for ei := start; ei < end; ei++ {
			w := led.CurrentCost(ei, entry)
			if w == graph.Infinity {
				continue
			}
			nd := addSat(e.dist[u], w)
			v := e.g.Head[ei]
			if nd < e.dist[v] {
				if e.dist[v] == graph.Infinity {
					e.touched = append(e.touched, v)
				}
				e.dist[v] = nd
				e.predEdge[v] = ei
				e.pq.push(v, nd, addSat(nd, pot.LowerBound(v)))
			}
		}
	}

	return Result{}
}

// buildPath walks predecessor edges back from the destination.
func (e *Engine) buildPath(origin, destination graph.NodeID) []graph.EdgeID {
	var path []graph.EdgeID
	for v := destination; v != origin; {
		edge := e.predEdge[v]
		path = append(path, edge)
		v = e.g.Tail(edge)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func addSat(a, b graph.Weight) graph.Weight {
	if sum := uint64(a) + uint64(b); sum < uint64(graph.Infinity) {
		return graph.Weight(sum)
	}
	return graph.Infinity
}
