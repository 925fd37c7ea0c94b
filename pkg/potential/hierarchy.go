package potential

import (
	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/graph"
)

// PreparedHierarchy is the hierarchy potential family: exact lower-bound
// distances over a single customized metric.
type PreparedHierarchy struct {
	Cust *cch.Customized
}

// PrepareHierarchy customizes the topology with the graph's lower-bound
// metric. On a static graph the resulting potential is the exact remaining
// distance.
func PrepareHierarchy(topo *cch.Topology, g *graph.Graph) (*PreparedHierarchy, error) {
	cust, err := cch.Customize(topo, cch.LowerBoundMetric(g))
	if err != nil {
		return nil, err
	}
	return &PreparedHierarchy{Cust: cust}, nil
}

func (p *PreparedHierarchy) NewPotential() Potential {
	return &Hierarchy{topo: p.Cust.Topo, tree: newTreeState(p.Cust)}
}

// Hierarchy evaluates the hierarchy potential for one query at a time.
type Hierarchy struct {
	topo *cch.Topology
	tree *treeState
}

// Bind runs the downward relaxation from the target. Source and departure
// are not needed for a static lower bound.
func (h *Hierarchy) Bind(source, target graph.NodeID, departure graph.Timestamp) {
	h.tree.bind(h.topo.Rank[target], graph.Infinity)
}

// LowerBound returns the precomputed distance toward the target, zero if the
// node never reaches it.
func (h *Hierarchy) LowerBound(node graph.NodeID) graph.Weight {
	if lb := h.tree.lowerBound(h.topo.Rank[node]); lb != graph.Infinity {
		return lb
	}
	return 0
}
