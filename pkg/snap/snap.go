// Package snap resolves geographic coordinates to the nearest road edge.
package snap

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/coop_router/pkg/geo"
	"github.com/azybler/coop_router/pkg/graph"
)

// MaxSnapDistMeters is how far a query point may sit from the nearest road.
const MaxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	Edge  graph.EdgeID
	NodeU graph.NodeID
	NodeV graph.NodeID
	Ratio float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist  float64 // meters from query point to snapped point
}

// Snapper answers nearest-edge queries over an R-tree of edge bounding
// boxes, stored as (lon, lat) so boxes line up with the usual x/y axes.
type Snapper struct {
	g  *graph.Graph
	tr rtree.RTreeG[graph.EdgeID]
}

// NewSnapper indexes every edge of g.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g}
	for u := graph.NodeID(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			s.tr.Insert(
				[2]float64{math.Min(g.NodeLon[u], g.NodeLon[v]), math.Min(g.NodeLat[u], g.NodeLat[v])},
				[2]float64{math.Max(g.NodeLon[u], g.NodeLon[v]), math.Max(g.NodeLat[u], g.NodeLat[v])},
				e,
			)
		}
	}
	return s
}

// Snap finds the nearest road segment to the given coordinate.
func (s *Snapper) Snap(lat, lon float64) (SnapResult, error) {
	// Degrees of longitude are the shortest meters per degree at the query
	// latitude, so this cutoff never prunes a segment within range.
	metersPerDeg := 110_574.0 * math.Cos(math.Abs(lat)*math.Pi/180)
	if metersPerDeg < 1 {
		metersPerDeg = 1
	}
	cutoffDeg := MaxSnapDistMeters / metersPerDeg

	best := SnapResult{Dist: math.Inf(1)}
	point := [2]float64{lon, lat}

	s.tr.Nearby(
		rtree.BoxDist[float64, graph.EdgeID](point, point, nil),
		func(min, max [2]float64, e graph.EdgeID, boxDist float64) bool {
			if boxDist > cutoffDeg {
				return false
			}
			u := s.g.Tail(e)
			v := s.g.Head[e]
			dist, ratio := geo.PointToSegmentDist(
				lat, lon,
				s.g.NodeLat[u], s.g.NodeLon[u],
				s.g.NodeLat[v], s.g.NodeLon[v],
			)
			if dist < best.Dist {
				best = SnapResult{Edge: e, NodeU: u, NodeV: v, Ratio: ratio, Dist: dist}
			}
			return true
		},
	)

	if best.Dist > MaxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}
