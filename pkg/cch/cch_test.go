package cch

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/azybler/coop_router/pkg/graph"
)

// randomGraph builds a connected pseudo-random graph. The chain is listed
// first, so external IDs equal internal ones.
func randomGraph(t *testing.T, numNodes, numExtraEdges int, seed int64) *graph.Graph {
	t.Helper()
	r := rand.New(rand.NewSource(seed))

	raw := &graph.RawGraph{
		NodeLat: map[int64]float64{},
		NodeLon: map[int64]float64{},
	}
	for i := 0; i < numNodes; i++ {
		raw.NodeLat[int64(i)] = float64(i) * 0.001
		raw.NodeLon[int64(i)] = float64(i%5) * 0.001
	}
	for i := 0; i < numNodes-1; i++ {
		raw.Edges = append(raw.Edges, graph.RawEdge{
			From: int64(i), To: int64(i + 1),
			DistanceM:    100,
			FreeflowTime: graph.Weight(1000 * (1 + r.Intn(20))),
		})
	}
	for i := 0; i < numExtraEdges; i++ {
		raw.Edges = append(raw.Edges, graph.RawEdge{
			From: int64(r.Intn(numNodes)), To: int64(r.Intn(numNodes)),
			DistanceM:    100,
			FreeflowTime: graph.Weight(1000 * (1 + r.Intn(20))),
		})
	}
	return graph.Build(raw)
}

// dijkstraDists is the brute-force reference over free-flow costs.
func dijkstraDists(g *graph.Graph, source graph.NodeID) []graph.Weight {
	dist := make([]graph.Weight, g.NumNodes)
	done := make([]bool, g.NumNodes)
	for i := range dist {
		dist[i] = graph.Infinity
	}
	dist[source] = 0

	for {
		u := graph.InvalidNode
		best := graph.Infinity
		for v := graph.NodeID(0); v < g.NumNodes; v++ {
			if !done[v] && dist[v] < best {
				best = dist[v]
				u = v
			}
		}
		if u == graph.InvalidNode {
			return dist
		}
		done[u] = true
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if nd := dist[u] + g.FreeflowTime[e]; nd < dist[g.Head[e]] {
				dist[g.Head[e]] = nd
			}
		}
	}
}

func TestOrderValidate(t *testing.T) {
	if err := (Order{2, 0, 1}).Validate(3); err != nil {
		t.Errorf("valid permutation rejected: %v", err)
	}
	if err := (Order{0, 0, 1}).Validate(3); !errors.Is(err, ErrMissingOrder) {
		t.Errorf("duplicate node: err = %v, want ErrMissingOrder", err)
	}
	if err := (Order{0, 1}).Validate(3); !errors.Is(err, ErrMissingOrder) {
		t.Errorf("short order: err = %v, want ErrMissingOrder", err)
	}
	if err := (Order{0, 1, 3}).Validate(3); !errors.Is(err, ErrMissingOrder) {
		t.Errorf("out-of-range node: err = %v, want ErrMissingOrder", err)
	}
}

func TestComputeOrderIsPermutation(t *testing.T) {
	g := randomGraph(t, 50, 120, 1)
	order := ComputeOrder(g)
	if err := order.Validate(g.NumNodes); err != nil {
		t.Fatalf("computed order invalid: %v", err)
	}
}

func TestBuildTopologyRejectsBadOrder(t *testing.T) {
	g := randomGraph(t, 10, 10, 2)
	if _, err := BuildTopology(g, Order{0, 1, 2}); !errors.Is(err, ErrMissingOrder) {
		t.Fatalf("err = %v, want ErrMissingOrder", err)
	}
}

func TestTopologyInvariants(t *testing.T) {
	g := randomGraph(t, 40, 100, 3)
	topo, err := BuildTopology(g, ComputeOrder(g))
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}

	for u := uint32(0); u < topo.NumNodes; u++ {
		start, end := topo.ArcsFrom(u)
		for i := start; i < end; i++ {
			if topo.Head[i] <= u {
				t.Fatalf("arc %d->%d does not go up", u, topo.Head[i])
			}
			if i > start && topo.Head[i] <= topo.Head[i-1] {
				t.Fatalf("heads of node %d not strictly sorted", u)
			}
		}
		if start < end && topo.Parent[u] != topo.Head[start] {
			t.Fatalf("parent of %d is %d, want lowest up-neighbor %d", u, topo.Parent[u], topo.Head[start])
		}
		if start == end && topo.Parent[u] != graph.InvalidNode {
			t.Fatalf("node %d has no up arcs but parent %d", u, topo.Parent[u])
		}
	}

	// every original edge is carried by exactly the arc between its endpoints
	for x := graph.NodeID(0); x < g.NumNodes; x++ {
		start, end := g.EdgesFrom(x)
		for e := start; e < end; e++ {
			y := g.Head[e]
			rx, ry := topo.Rank[x], topo.Rank[y]
			lo, hi := rx, ry
			if lo > hi {
				lo, hi = hi, lo
			}
			arc := topo.FindArc(lo, hi)
			if arc == graph.InvalidNode {
				t.Fatalf("no arc for edge %d->%d", x, y)
			}
			if rx < ry && topo.FwdEdge[arc] != e {
				t.Fatalf("FwdEdge of arc %d = %d, want %d", arc, topo.FwdEdge[arc], e)
			}
			if rx > ry && topo.BwdEdge[arc] != e {
				t.Fatalf("BwdEdge of arc %d = %d, want %d", arc, topo.BwdEdge[arc], e)
			}
		}
	}
}

func TestCustomizeRejectsCorruptTopology(t *testing.T) {
	g := randomGraph(t, 15, 20, 4)
	topo, err := BuildTopology(g, ComputeOrder(g))
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	if topo.NumArcs() == 0 {
		t.Fatal("expected arcs")
	}

	topo.Head[0] = 0 // now an arc points downward

	if _, err := Customize(topo, LowerBoundMetric(g)); !errors.Is(err, ErrInconsistentRank) {
		t.Fatalf("err = %v, want ErrInconsistentRank", err)
	}
}

// The customizability invariant: hierarchy distances equal plain shortest
// path distances, exhaustively on a small graph.
func TestEliminationQueryMatchesDijkstra(t *testing.T) {
	g := randomGraph(t, 40, 120, 5)
	topo, err := BuildTopology(g, ComputeOrder(g))
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	cust, err := Customize(topo, LowerBoundMetric(g))
	if err != nil {
		t.Fatalf("Customize: %v", err)
	}

	q := NewEliminationQuery(cust)
	for s := graph.NodeID(0); s < g.NumNodes; s++ {
		want := dijkstraDists(g, s)
		for target := graph.NodeID(0); target < g.NumNodes; target++ {
			if got := q.Distance(s, target); got != want[target] {
				t.Fatalf("distance %d->%d = %d, want %d", s, target, got, want[target])
			}
		}
	}
}

func TestCustomizeMultiMatchesSingle(t *testing.T) {
	g := randomGraph(t, 30, 60, 6)
	topo, err := BuildTopology(g, ComputeOrder(g))
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}

	metrics := []Metric{LowerBoundMetric(g), UpperBoundMetric(g)}
	multi, err := CustomizeMulti(topo, metrics)
	if err != nil {
		t.Fatalf("CustomizeMulti: %v", err)
	}
	if len(multi) != len(metrics) {
		t.Fatalf("got %d customizations, want %d", len(multi), len(metrics))
	}

	for k, metric := range metrics {
		single, err := Customize(topo, metric)
		if err != nil {
			t.Fatalf("Customize %d: %v", k, err)
		}
		for i := range single.FwdWeight {
			if multi[k].FwdWeight[i] != single.FwdWeight[i] || multi[k].BwdWeight[i] != single.BwdWeight[i] {
				t.Fatalf("metric %d arc %d differs between Multi and single", k, i)
			}
		}
	}
}

func TestIntervalMetric(t *testing.T) {
	raw := &graph.RawGraph{
		Edges: []graph.RawEdge{
			{From: 0, To: 1, DistanceM: 1000, FreeflowTime: 10_000},
		},
		NodeLat: map[int64]float64{0: 0, 1: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0.001},
	}
	g := graph.Build(raw)

	sixH := graph.Timestamp(6 * 3600 * 1000)
	g = g.WithProfiles([]graph.Profile{{
		Departure:  []graph.Timestamp{0, sixH, 2 * sixH, 3 * sixH, graph.DayMs},
		TravelTime: []graph.Weight{10_000, 30_000, 20_000, 40_000, 10_000},
	}})

	if got := LowerBoundMetric(g)(0); got != 10_000 {
		t.Errorf("lower bound = %d, want 10000", got)
	}
	if got := UpperBoundMetric(g)(0); got != 40_000 {
		t.Errorf("upper bound = %d, want 40000", got)
	}
	// inside [6h, 12h) the cheapest departure is the 12h breakpoint value
	// approached from within: minimum of the window is at its end
	if got := IntervalMetric(g, sixH, 2*sixH)(0); got != 20_000 {
		t.Errorf("interval metric [6h,12h) = %d, want 20000", got)
	}
	if got := IntervalMetric(g, 0, sixH)(0); got != 10_000 {
		t.Errorf("interval metric [0,6h) = %d, want 10000", got)
	}
}
