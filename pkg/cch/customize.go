package cch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/azybler/coop_router/pkg/graph"
)

// Metric maps an edge to the weight customization should use for it.
// A metric intended for lower-bound potentials must never exceed the true
// cost of the edge at any departure time.
type Metric func(e graph.EdgeID) graph.Weight

// LowerBoundMetric returns each edge's smallest possible travel time.
func LowerBoundMetric(g *graph.Graph) Metric {
	return g.LowerBoundCost
}

// UpperBoundMetric returns each edge's largest possible travel time.
func UpperBoundMetric(g *graph.Graph) Metric {
	return g.UpperBoundCost
}

// IntervalMetric returns each edge's minimum travel time for departures in
// [from, to). Only admissible for queries that stay inside the interval.
func IntervalMetric(g *graph.Graph, from, to graph.Timestamp) Metric {
	return func(e graph.EdgeID) graph.Weight {
		if g.Profiles != nil {
			if p := &g.Profiles[e]; len(p.Departure) > 0 {
				return p.MinInRange(from, to)
			}
		}
		return g.FreeflowTime[e]
	}
}

// Customized holds one set of customized arc weights over a topology.
// FwdWeight[i] is the weight of the best known path order[u] -> order[v]
// for arc i = (u, v); BwdWeight[i] the reverse direction.
type Customized struct {
	Topo      *Topology
	FwdWeight []graph.Weight
	BwdWeight []graph.Weight
}

// Customize derives arc weights for one metric: seed every arc from its
// original edges, then relax lower triangles bottom-up. Duplicate paths
// merge by minimum. The input topology is not modified.
func Customize(topo *Topology, metric Metric) (*Customized, error) {
	if err := topo.validateRanks(); err != nil {
		return nil, err
	}

	m := topo.NumArcs()
	cust := &Customized{
		Topo:      topo,
		FwdWeight: make([]graph.Weight, m),
		BwdWeight: make([]graph.Weight, m),
	}

	for i := uint32(0); i < m; i++ {
		cust.FwdWeight[i] = graph.Infinity
		cust.BwdWeight[i] = graph.Infinity
		if e := topo.FwdEdge[i]; e != graph.InvalidNode {
			cust.FwdWeight[i] = metric(e)
		}
		if e := topo.BwdEdge[i]; e != graph.InvalidNode {
			cust.BwdWeight[i] = metric(e)
		}
	}

	cust.relaxTriangles()
	return cust, nil
}

// relaxTriangles runs the basic customization pass. For every node u in
// elimination order and every pair of its up arcs (u,a), (u,b) with a < b,
// the arc (a,b) is relaxed through u in both directions.
func (c *Customized) relaxTriangles() {
	topo := c.Topo
	for u := uint32(0); u < topo.NumNodes; u++ {
		start, end := topo.ArcsFrom(u)
		for i := start; i < end; i++ {
			a := topo.Head[i]
			for j := i + 1; j < end; j++ {
				b := topo.Head[j]
				arc := topo.FindArc(a, b)
				if arc == graph.InvalidNode {
					continue // pruned topology
				}

				// a -> u -> b
				if via := addWeights(c.BwdWeight[i], c.FwdWeight[j]); via < c.FwdWeight[arc] {
					c.FwdWeight[arc] = via
				}
				// b -> u -> a
				if via := addWeights(c.BwdWeight[j], c.FwdWeight[i]); via < c.BwdWeight[arc] {
					c.BwdWeight[arc] = via
				}
			}
		}
	}
}

// addWeights adds two weights, saturating at Infinity.
func addWeights(a, b graph.Weight) graph.Weight {
	if a == graph.Infinity || b == graph.Infinity {
		return graph.Infinity
	}
	if sum := uint64(a) + uint64(b); sum < uint64(graph.Infinity) {
		return graph.Weight(sum)
	}
	return graph.Infinity
}

// CustomizeMulti customizes several metrics over one topology, in parallel.
// Metric 0 by convention is the global lower bound.
func CustomizeMulti(topo *Topology, metrics []Metric) ([]*Customized, error) {
	if err := topo.validateRanks(); err != nil {
		return nil, err
	}

	out := make([]*Customized, len(metrics))
	g, _ := errgroup.WithContext(context.Background())
	for k, metric := range metrics {
		k, metric := k, metric
		g.Go(func() error {
			cust, err := Customize(topo, metric)
			if err != nil {
				return err
			}
			out[k] = cust
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
