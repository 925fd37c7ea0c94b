package graph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildDropsSelfLoopsAndMergesDuplicates(t *testing.T) {
	g := Build(&RawGraph{
		Edges: []RawEdge{
			{From: 10, To: 20, DistanceM: 100, FreeflowTime: 5000, CapacityPerHour: 600},
			{From: 10, To: 20, DistanceM: 90, FreeflowTime: 4000, CapacityPerHour: 500}, // duplicate, faster
			{From: 20, To: 30, DistanceM: 50, FreeflowTime: 2000, CapacityPerHour: 300},
			{From: 30, To: 30, DistanceM: 1, FreeflowTime: 1, CapacityPerHour: 1}, // self loop
		},
		NodeLat: map[int64]float64{10: 1, 20: 2, 30: 3},
		NodeLon: map[int64]float64{10: 4, 20: 5, 30: 6},
	})

	if g.NumNodes != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes)
	}
	if g.NumEdges != 2 {
		t.Fatalf("NumEdges = %d, want 2", g.NumEdges)
	}

	e := g.FindEdge(0, 1)
	if e == InvalidNode {
		t.Fatal("edge 0->1 missing")
	}
	if g.FreeflowTime[e] != 4000 {
		t.Errorf("merged FreeflowTime = %d, want the minimum 4000", g.FreeflowTime[e])
	}
	if g.CapacityPerHour[e] != 600 {
		t.Errorf("merged CapacityPerHour = %d, want the maximum 600", g.CapacityPerHour[e])
	}

	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g.NodeLat[0] != 1 || g.NodeLon[2] != 6 {
		t.Error("coordinates not carried over")
	}
}

func TestTailInvertsHead(t *testing.T) {
	g := Build(&RawGraph{
		Edges: []RawEdge{
			{From: 0, To: 1, FreeflowTime: 1},
			{From: 0, To: 2, FreeflowTime: 1},
			{From: 1, To: 2, FreeflowTime: 1},
			{From: 2, To: 0, FreeflowTime: 1},
		},
		NodeLat: map[int64]float64{0: 0, 1: 0, 2: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0, 2: 0},
	})

	for u := NodeID(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			if got := g.Tail(e); got != u {
				t.Errorf("Tail(%d) = %d, want %d", e, got, u)
			}
		}
	}
}

func TestProfileEval(t *testing.T) {
	p := Profile{
		Departure:  []Timestamp{0, 100, 200, DayMs},
		TravelTime: []Weight{10, 30, 20, 10},
	}

	tests := []struct {
		t    Timestamp
		want Weight
	}{
		{0, 10},
		{50, 20},  // interpolating up
		{100, 30}, // exact breakpoint
		{150, 25}, // interpolating down
		{DayMs, 10},
		{DayMs + 50, 20}, // wraps
	}
	for _, tt := range tests {
		if got := p.Eval(tt.t); got != tt.want {
			t.Errorf("Eval(%d) = %d, want %d", tt.t, got, tt.want)
		}
	}

	if p.Min() != 10 || p.Max() != 30 {
		t.Errorf("Min/Max = %d/%d, want 10/30", p.Min(), p.Max())
	}
	if got := p.MinInRange(100, 200); got != 20 {
		t.Errorf("MinInRange(100, 200) = %d, want 20", got)
	}
	if got := p.MinInRange(110, 190); got < 20 || got > 30 {
		t.Errorf("MinInRange(110, 190) = %d, out of segment range", got)
	}
}

func TestCostAtModes(t *testing.T) {
	g := Build(&RawGraph{
		Edges:   []RawEdge{{From: 0, To: 1, FreeflowTime: 7000}},
		NodeLat: map[int64]float64{0: 0, 1: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0},
	})

	if g.TimeDependent() {
		t.Fatal("static graph claims to be time-dependent")
	}
	if got := g.CostAt(0, 12345); got != 7000 {
		t.Errorf("static CostAt = %d, want 7000", got)
	}

	td := g.WithProfiles([]Profile{ConstantProfile(9000)})
	if !td.TimeDependent() {
		t.Fatal("profiled graph not time-dependent")
	}
	if got := td.CostAt(0, 12345); got != 9000 {
		t.Errorf("td CostAt = %d, want 9000", got)
	}

	if _, err := g.CheckedCostAt(5, 0); err == nil {
		t.Error("CheckedCostAt accepted a dangling edge")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	g := Build(&RawGraph{
		Edges: []RawEdge{
			{From: 0, To: 1, DistanceM: 10, FreeflowTime: 1000, CapacityPerHour: 100},
			{From: 1, To: 2, DistanceM: 20, FreeflowTime: 2000, CapacityPerHour: 200},
			{From: 2, To: 0, DistanceM: 30, FreeflowTime: 3000, CapacityPerHour: 300},
		},
		NodeLat: map[int64]float64{0: 48.1, 1: 48.2, 2: 48.3},
		NodeLon: map[int64]float64{0: 9.1, 1: 9.2, 2: 9.3},
	})
	g = g.WithProfiles([]Profile{
		ConstantProfile(1000),
		{Departure: []Timestamp{0, 1000, DayMs}, TravelTime: []Weight{2000, 4000, 2000}},
		ConstantProfile(3000),
	})

	path := filepath.Join(t.TempDir(), "graph.bin")
	if err := WriteBinary(path, g); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	got, err := ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	if got.NumNodes != g.NumNodes || got.NumEdges != g.NumEdges {
		t.Fatalf("size mismatch: %d/%d vs %d/%d", got.NumNodes, got.NumEdges, g.NumNodes, g.NumEdges)
	}
	for e := EdgeID(0); e < g.NumEdges; e++ {
		if got.Head[e] != g.Head[e] || got.FreeflowTime[e] != g.FreeflowTime[e] ||
			got.DistanceM[e] != g.DistanceM[e] || got.CapacityPerHour[e] != g.CapacityPerHour[e] {
			t.Fatalf("edge %d attributes differ after round trip", e)
		}
	}
	for i := NodeID(0); i < g.NumNodes; i++ {
		if got.NodeLat[i] != g.NodeLat[i] || got.NodeLon[i] != g.NodeLon[i] {
			t.Fatalf("node %d coordinates differ after round trip", i)
		}
	}
	if !got.TimeDependent() {
		t.Fatal("profiles lost in round trip")
	}
	if got.CostAt(1, 500) != g.CostAt(1, 500) {
		t.Fatal("profile evaluation differs after round trip")
	}
}

func TestBinaryRejectsCorruption(t *testing.T) {
	g := Build(&RawGraph{
		Edges:   []RawEdge{{From: 0, To: 1, DistanceM: 10, FreeflowTime: 1000, CapacityPerHour: 10}},
		NodeLat: map[int64]float64{0: 0, 1: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0},
	})

	path := filepath.Join(t.TempDir(), "graph.bin")
	if err := WriteBinary(path, g); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ReadBinary(path); err == nil {
		t.Fatal("corrupted file accepted")
	}
}

func TestLargestComponent(t *testing.T) {
	// component {0,1,2} (via directed edges, weakly connected) and {3,4}
	g := Build(&RawGraph{
		Edges: []RawEdge{
			{From: 0, To: 1, FreeflowTime: 1},
			{From: 2, To: 1, FreeflowTime: 1},
			{From: 3, To: 4, FreeflowTime: 1},
		},
		NodeLat: map[int64]float64{0: 0, 1: 0, 2: 0, 3: 0, 4: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0, 2: 0, 3: 0, 4: 0},
	})

	nodes := LargestComponent(g)
	if len(nodes) != 3 {
		t.Fatalf("largest component has %d nodes, want 3", len(nodes))
	}

	sub := FilterToComponent(g, nodes)
	if sub.NumNodes != 3 {
		t.Fatalf("filtered NumNodes = %d, want 3", sub.NumNodes)
	}
	if sub.NumEdges != 2 {
		t.Fatalf("filtered NumEdges = %d, want 2", sub.NumEdges)
	}
	if err := sub.Validate(); err != nil {
		t.Fatalf("filtered graph invalid: %v", err)
	}
}

func TestValidateCatchesDanglingHead(t *testing.T) {
	g := Build(&RawGraph{
		Edges:   []RawEdge{{From: 0, To: 1, FreeflowTime: 1}},
		NodeLat: map[int64]float64{0: 0, 1: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0},
	})
	g.Head[0] = 99
	if err := g.Validate(); err == nil {
		t.Fatal("dangling head accepted")
	}
}
