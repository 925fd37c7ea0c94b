package potential

import (
	"fmt"

	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/graph"
)

// metricEntry couples a customized metric with the departure interval it is
// valid for. Metric 0 spans the whole day and is always valid.
type metricEntry struct {
	cust     *cch.Customized
	from, to graph.Timestamp
}

// PreparedMultiMetric holds several customized lower-bound metrics plus an
// upper-bound metric used to bound the arrival time of a query.
type PreparedMultiMetric struct {
	entries []metricEntry
	upper   *cch.Customized
}

// PrepareMultiMetric customizes the global lower bound, an upper bound, and
// numIntervals balanced interval minima. Interval metrics tighten bounds for
// queries that stay inside their interval without breaking admissibility:
// only covering intervals are activated per query.
func PrepareMultiMetric(topo *cch.Topology, g *graph.Graph, numIntervals int) (*PreparedMultiMetric, error) {
	if numIntervals < 0 {
		return nil, fmt.Errorf("negative interval count %d", numIntervals)
	}

	metrics := []cch.Metric{cch.LowerBoundMetric(g), cch.UpperBoundMetric(g)}
	intervals := make([][2]graph.Timestamp, 0, numIntervals)
	step := graph.DayMs / graph.Timestamp(max(numIntervals, 1))
	for i := 0; i < numIntervals; i++ {
		from := graph.Timestamp(i) * step
		to := from + step
		if i == numIntervals-1 {
			to = graph.DayMs
		}
		intervals = append(intervals, [2]graph.Timestamp{from, to})
		metrics = append(metrics, cch.IntervalMetric(g, from, to))
	}

	custs, err := cch.CustomizeMulti(topo, metrics)
	if err != nil {
		return nil, err
	}

	prepared := &PreparedMultiMetric{
		entries: []metricEntry{{cust: custs[0], from: 0, to: graph.DayMs}},
		upper:   custs[1],
	}
	for i, iv := range intervals {
		prepared.entries = append(prepared.entries, metricEntry{
			cust: custs[i+2],
			from: iv[0],
			to:   iv[1],
		})
	}
	return prepared, nil
}

func (p *PreparedMultiMetric) NewPotential() Potential {
	mm := &MultiMetric{
		prepared:   p,
		topo:       p.entries[0].cust.Topo,
		upperQuery: cch.NewEliminationQuery(p.upper),
	}
	for _, entry := range p.entries {
		mm.trees = append(mm.trees, newTreeState(entry.cust))
	}
	return mm
}

// MultiMetric evaluates the maximum over all metrics valid for the bound
// query. Each metric individually lower-bounds the true cost inside its
// interval, and max preserves both admissibility and consistency.
type MultiMetric struct {
	prepared   *PreparedMultiMetric
	topo       *cch.Topology
	trees      []*treeState
	upperQuery *cch.EliminationQuery
	active     []int
}

// Bind computes an upper bound on the arrival time via an interval query,
// activates every metric whose interval covers [departure, arrival], and
// runs the downward relaxation once per active metric.
func (m *MultiMetric) Bind(source, target graph.NodeID, departure graph.Timestamp) {
	m.active = m.active[:0]

	arrivalBound := graph.Infinity
	if upper := m.upperQuery.Distance(source, target); upper != graph.Infinity {
		if a := uint64(departure) + uint64(upper); a < uint64(graph.Infinity) {
			arrivalBound = graph.Weight(a)
		}
	}

	targetRank := m.topo.Rank[target]
	for k, entry := range m.prepared.entries {
		if k > 0 {
			if arrivalBound == graph.Infinity {
				continue // arrival unbounded, only the full-day metric is safe
			}
			if entry.from > departure || uint64(entry.to) < uint64(arrivalBound) {
				continue
			}
		}
		m.trees[k].bind(targetRank, graph.Infinity)
		m.active = append(m.active, k)
	}
}

// LowerBound returns the tightest bound among active metrics, zero if the
// target is unreached under all of them.
func (m *MultiMetric) LowerBound(node graph.NodeID) graph.Weight {
	rank := m.topo.Rank[node]

	var best graph.Weight
	for _, k := range m.active {
		if lb := m.trees[k].lowerBound(rank); lb != graph.Infinity && lb > best {
			best = lb
		}
	}
	return best
}
