package potential

import (
	"fmt"

	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/geo"
	"github.com/azybler/coop_router/pkg/graph"
)

// DefaultCorridorWidthMin is the default corridor breadth in minutes.
const DefaultCorridorWidthMin = 72

// DefaultMaxSpeedKmh is the floor for the geodesic fallback speed.
// PrepareCorridor raises it to the graph's top edge speed, so the fallback
// never undercuts an edge the graph can actually traverse.
const DefaultMaxSpeedKmh = 150.0

// PreparedCorridor restricts the per-query relaxation to a corridor of the
// hierarchy likely to contain the optimal path. Outside the corridor a
// geodesic fallback keeps the bound admissible everywhere.
type PreparedCorridor struct {
	Lower *cch.Customized
	Upper *cch.Customized

	g           *graph.Graph
	widthMs     graph.Weight
	maxSpeedKmh float64
}

// PrepareCorridor customizes lower and upper bound metrics and fixes the
// corridor width (in minutes of slack over the best known arrival bound).
func PrepareCorridor(topo *cch.Topology, g *graph.Graph, widthMin uint32, maxSpeedKmh float64) (*PreparedCorridor, error) {
	if maxSpeedKmh <= 0 {
		return nil, fmt.Errorf("non-positive max speed %f", maxSpeedKmh)
	}
	// The fallback divides by this speed, so it must dominate every edge.
	// Importers honor maxspeed tags above any fixed constant.
	if top := topSpeedKmh(g); top > maxSpeedKmh {
		maxSpeedKmh = top
	}
	custs, err := cch.CustomizeMulti(topo, []cch.Metric{cch.LowerBoundMetric(g), cch.UpperBoundMetric(g)})
	if err != nil {
		return nil, err
	}
	return &PreparedCorridor{
		Lower:       custs[0],
		Upper:       custs[1],
		g:           g,
		widthMs:     graph.Weight(widthMin) * 60_000,
		maxSpeedKmh: maxSpeedKmh,
	}, nil
}

func (p *PreparedCorridor) NewPotential() Potential {
	return &Corridor{
		prepared:   p,
		topo:       p.Lower.Topo,
		tree:       newTreeState(p.Lower),
		upperQuery: cch.NewEliminationQuery(p.Upper),
	}
}

// Corridor evaluates the corridor lower-bound potential for one query at a
// time.
type Corridor struct {
	prepared   *PreparedCorridor
	topo       *cch.Topology
	tree       *treeState
	upperQuery *cch.EliminationQuery

	cap                  graph.Weight // corridor threshold for this query
	targetLat, targetLon float64
}

// Bind sizes the corridor from the source-target interval query and relaxes
// backward labels only within it. When no arrival bound exists the
// relaxation is unbounded and no cap applies.
func (c *Corridor) Bind(source, target graph.NodeID, departure graph.Timestamp) {
	c.cap = graph.Infinity
	if upper := c.upperQuery.Distance(source, target); upper != graph.Infinity {
		c.cap = addSat(upper, c.prepared.widthMs)
	}
	c.tree.bind(c.topo.Rank[target], c.cap)

	c.targetLat = c.prepared.g.NodeLat[target]
	c.targetLon = c.prepared.g.NodeLon[target]
}

// LowerBound returns the corridor bound where available, and everywhere at
// least the geodesic bound.
//
// The corridor term is clamped to the corridor threshold: nodes outside the
// corridor provably have a remaining cost above the threshold, so the
// clamped value stays admissible, and clamping a consistent function by a
// constant keeps it consistent. Max of two consistent bounds is consistent.
func (c *Corridor) LowerBound(node graph.NodeID) graph.Weight {
	bound := c.geoBound(node)

	lb := c.tree.lowerBound(c.topo.Rank[node])
	if lb > c.cap {
		lb = c.cap
	}
	if lb != graph.Infinity && lb > bound {
		bound = lb
	}
	return bound
}

// topSpeedKmh returns the fastest effective speed any edge attains at its
// cheapest cost.
func topSpeedKmh(g *graph.Graph) float64 {
	top := 0.0
	for e := graph.EdgeID(0); e < g.NumEdges; e++ {
		tt := g.LowerBoundCost(e)
		if tt == 0 || g.DistanceM[e] == 0 {
			continue
		}
		if s := float64(g.DistanceM[e]) * 3600.0 / float64(tt); s > top {
			top = s
		}
	}
	return top
}

// geoBound is the great-circle travel time at the global speed cap.
func (c *Corridor) geoBound(node graph.NodeID) graph.Weight {
	distM := geo.Haversine(c.prepared.g.NodeLat[node], c.prepared.g.NodeLon[node], c.targetLat, c.targetLon)
	ms := distM * 3600.0 / c.prepared.maxSpeedKmh // m / (km/h) -> ms
	if ms >= float64(graph.Infinity) {
		return 0
	}
	return graph.Weight(ms)
}
