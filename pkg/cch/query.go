package cch

import (
	"github.com/azybler/coop_router/pkg/graph"
)

// EliminationQuery answers exact point-to-point distances over a customized
// hierarchy by walking both elimination-tree ancestor paths and meeting in
// the middle. Not safe for concurrent use; each worker owns its own instance.
type EliminationQuery struct {
	cust *Customized

	fwdDist []graph.Weight
	bwdDist []graph.Weight
	touched []uint32
}

// NewEliminationQuery allocates reusable query state.
func NewEliminationQuery(cust *Customized) *EliminationQuery {
	n := cust.Topo.NumNodes
	fwd := make([]graph.Weight, n)
	bwd := make([]graph.Weight, n)
	for i := range fwd {
		fwd[i] = graph.Infinity
		bwd[i] = graph.Infinity
	}
	return &EliminationQuery{
		cust:    cust,
		fwdDist: fwd,
		bwdDist: bwd,
		touched: make([]uint32, 0, 256),
	}
}

func (q *EliminationQuery) reset() {
	for _, x := range q.touched {
		q.fwdDist[x] = graph.Infinity
		q.bwdDist[x] = graph.Infinity
	}
	q.touched = q.touched[:0]
}

func (q *EliminationQuery) touch(x uint32) {
	if q.fwdDist[x] == graph.Infinity && q.bwdDist[x] == graph.Infinity {
		q.touched = append(q.touched, x)
	}
}

// Distance returns the shortest distance from s to t under the customized
// metric, or graph.Infinity if t is unreachable. s and t are original node
// IDs.
func (q *EliminationQuery) Distance(s, t graph.NodeID) graph.Weight {
	topo := q.cust.Topo
	q.reset()

	rs, rt := topo.Rank[s], topo.Rank[t]

	q.touch(rs)
	q.fwdDist[rs] = 0
	q.touch(rt)
	q.bwdDist[rt] = 0

	// Upward relaxation along the forward ancestor chain. Every up-neighbor
	// of a chain node is itself an ancestor, so ascending-rank processing
	// settles labels before they are read.
	for x := rs; x != graph.InvalidNode; x = topo.Parent[x] {
		d := q.fwdDist[x]
		if d == graph.Infinity {
			continue
		}
		start, end := topo.ArcsFrom(x)
		for i := start; i < end; i++ {
			v := topo.Head[i]
			if nd := addWeights(d, q.cust.FwdWeight[i]); nd < q.fwdDist[v] {
				q.touch(v)
				q.fwdDist[v] = nd
			}
		}
	}

	best := graph.Infinity

	// Backward chain: relax downward arcs and combine with forward labels.
	for x := rt; x != graph.InvalidNode; x = topo.Parent[x] {
		d := q.bwdDist[x]
		if d != graph.Infinity {
			start, end := topo.ArcsFrom(x)
			for i := start; i < end; i++ {
				v := topo.Head[i]
				if nd := addWeights(d, q.cust.BwdWeight[i]); nd < q.bwdDist[v] {
					q.touch(v)
					q.bwdDist[v] = nd
				}
			}
		}
	}

	// The apex of the best up-down path is a common ancestor; scanning the
	// target chain is sufficient because it contains all ancestors of t.
	for x := rt; x != graph.InvalidNode; x = topo.Parent[x] {
		if m := addWeights(q.fwdDist[x], q.bwdDist[x]); m < best {
			best = m
		}
	}

	return best
}
