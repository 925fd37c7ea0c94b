package potential

import (
	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/graph"
)

// treeState evaluates lower bounds over one customized metric via the
// elimination tree: bind runs a downward relaxation from the target, and
// lookups lazily propagate values along the node's ancestor path.
//
// Arrays are generation-tagged so rebinding is O(1).
type treeState struct {
	cust *cch.Customized

	backDist []graph.Weight // rank space: distance from node to target
	backGen  []uint32
	pot      []graph.Weight
	potGen   []uint32
	gen      uint32
	stack    []uint32
}

func newTreeState(cust *cch.Customized) *treeState {
	n := cust.Topo.NumNodes
	return &treeState{
		cust:     cust,
		backDist: make([]graph.Weight, n),
		backGen:  make([]uint32, n),
		pot:      make([]graph.Weight, n),
		potGen:   make([]uint32, n),
	}
}

func (t *treeState) backDistAt(x uint32) graph.Weight {
	if t.backGen[x] == t.gen {
		return t.backDist[x]
	}
	return graph.Infinity
}

// bind relaxes backward (down-side) weights from the target rank upward
// through the elimination tree. Labels exceeding maxDist are not propagated;
// pass graph.Infinity for an unbounded relaxation.
func (t *treeState) bind(targetRank uint32, maxDist graph.Weight) {
	t.gen++

	topo := t.cust.Topo
	t.backDist[targetRank] = 0
	t.backGen[targetRank] = t.gen

	for x := targetRank; x != graph.InvalidNode; x = topo.Parent[x] {
		d := t.backDistAt(x)
		if d == graph.Infinity {
			continue
		}
		start, end := topo.ArcsFrom(x)
		for i := start; i < end; i++ {
			nd := addSat(d, t.cust.BwdWeight[i])
			if nd > maxDist {
				continue
			}
			v := topo.Head[i]
			if nd < t.backDistAt(v) {
				t.backDist[v] = nd
				t.backGen[v] = t.gen
			}
		}
	}
}

// lowerBound returns the bound for a rank-space node, graph.Infinity if the
// target was not reached from it. First call per node walks the ancestor
// path until a settled entry, then back-propagates:
// pot(u) = min(backDist(u), min over up arcs (u,v) of w(u,v)+pot(v)).
func (t *treeState) lowerBound(rank uint32) graph.Weight {
	topo := t.cust.Topo

	cur := rank
	for t.potGen[cur] != t.gen {
		t.stack = append(t.stack, cur)
		parent := topo.Parent[cur]
		if parent == graph.InvalidNode {
			break
		}
		cur = parent
	}

	for len(t.stack) > 0 {
		u := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]

		best := t.backDistAt(u)
		start, end := topo.ArcsFrom(u)
		for i := start; i < end; i++ {
			v := topo.Head[i]
			if t.potGen[v] != t.gen {
				continue // unreachable ancestor, counts as Infinity
			}
			if d := addSat(t.cust.FwdWeight[i], t.pot[v]); d < best {
				best = d
			}
		}
		t.pot[u] = best
		t.potGen[u] = t.gen
	}

	return t.pot[rank]
}

func addSat(a, b graph.Weight) graph.Weight {
	if a == graph.Infinity || b == graph.Infinity {
		return graph.Infinity
	}
	if sum := uint64(a) + uint64(b); sum < uint64(graph.Infinity) {
		return graph.Weight(sum)
	}
	return graph.Infinity
}
