package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/coop_router/pkg/graph"
)

// two edges in a line, one minute free-flow each, 10 vehicles per hour
func lineGraph() *graph.Graph {
	return graph.Build(&graph.RawGraph{
		Edges: []graph.RawEdge{
			{From: 0, To: 1, DistanceM: 1000, FreeflowTime: 60_000, CapacityPerHour: 10},
			{From: 1, To: 2, DistanceM: 1000, FreeflowTime: 60_000, CapacityPerHour: 10},
		},
		NodeLat: map[int64]float64{0: 0, 1: 0, 2: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0, 2: 0},
	})
}

func TestBPRPenaltyMonotone(t *testing.T) {
	penalty := BPRPenalty(1, 2)

	prev := graph.Weight(0)
	for used := uint32(1); used <= 30; used++ {
		cost := penalty(60_000, used, 10)
		assert.GreaterOrEqual(t, cost, graph.Weight(60_000))
		assert.GreaterOrEqual(t, cost, prev)
		prev = cost
	}

	// at saturation the default doubles the free-flow time
	assert.Equal(t, graph.Weight(120_000), penalty(60_000, 10, 10))
}

func TestCurrentCostUnloaded(t *testing.T) {
	led, err := New(lineGraph(), Options{})
	require.NoError(t, err)

	assert.Equal(t, graph.Weight(60_000), led.CurrentCost(0, 0))
	// reads do not mutate
	assert.Equal(t, graph.Weight(60_000), led.CurrentCost(0, 0))
	assert.Equal(t, 0, led.Footprint().Buckets)
}

func TestCommitInflatesCost(t *testing.T) {
	led, err := New(lineGraph(), Options{})
	require.NoError(t, err)

	path := []graph.EdgeID{0, 1}
	before := led.CurrentCost(0, 0)

	prev := before
	for i := 0; i < 20; i++ {
		require.NoError(t, led.Commit(path, 0))
		cost := led.CurrentCost(0, 0)
		assert.GreaterOrEqual(t, cost, prev, "commit %d decreased the cost", i)
		prev = cost
	}
	assert.Greater(t, prev, before)

	// other buckets stay at free-flow
	assert.Equal(t, before, led.CurrentCost(0, 12*3600*1000))
}

func TestCommitAccumulatesEntryTimes(t *testing.T) {
	// edge 0 takes two hours, so edge 1 is entered two buckets later
	g := graph.Build(&graph.RawGraph{
		Edges: []graph.RawEdge{
			{From: 0, To: 1, DistanceM: 1000, FreeflowTime: 2 * 3600 * 1000, CapacityPerHour: 10},
			{From: 1, To: 2, DistanceM: 1000, FreeflowTime: 60_000, CapacityPerHour: 10},
		},
		NodeLat: map[int64]float64{0: 0, 1: 0, 2: 0},
		NodeLon: map[int64]float64{0: 0, 1: 0, 2: 0},
	})
	led, err := New(g, Options{NumBuckets: 24})
	require.NoError(t, err)

	require.NoError(t, led.Commit([]graph.EdgeID{0, 1}, 30*60*1000))

	assert.Equal(t, uint32(1), led.used[0].usedAt(0))
	assert.Equal(t, uint32(1), led.used[1].usedAt(2*3600*1000))
	assert.Equal(t, uint32(0), led.used[1].usedAt(0))
}

func TestCommitInvalidEdgeLeavesNoState(t *testing.T) {
	led, err := New(lineGraph(), Options{})
	require.NoError(t, err)

	err = led.Commit([]graph.EdgeID{0, 99}, 0)
	require.ErrorIs(t, err, graph.ErrInvalidEdge)

	assert.Equal(t, 0, led.Footprint().Buckets)
	assert.Equal(t, graph.Weight(60_000), led.CurrentCost(0, 0))
}

func TestFrozenViewStaysAtZeroLoad(t *testing.T) {
	led, err := New(lineGraph(), Options{})
	require.NoError(t, err)
	frozen := led.Frozen()

	for i := 0; i < 15; i++ {
		require.NoError(t, led.Commit([]graph.EdgeID{0}, 0))
	}

	assert.Greater(t, led.CurrentCost(0, 0), graph.Weight(60_000))
	assert.Equal(t, graph.Weight(60_000), frozen.CurrentCost(0, 0))
	require.Error(t, frozen.Commit([]graph.EdgeID{0}, 0))
}

func TestReset(t *testing.T) {
	led, err := New(lineGraph(), Options{NumBuckets: 4, MaxLiveBuckets: 2})
	require.NoError(t, err)

	for ts := graph.Timestamp(0); ts < graph.DayMs; ts += graph.DayMs / 4 {
		require.NoError(t, led.Commit([]graph.EdgeID{0}, ts))
	}
	require.Greater(t, led.Footprint().Coarsenings, 0)

	led.Reset()
	fp := led.Footprint()
	assert.Equal(t, 0, fp.Buckets)
	assert.Equal(t, 0, fp.Coarsenings)
	assert.Equal(t, graph.DayMs/4, fp.BucketSize)
	assert.Equal(t, graph.Weight(60_000), led.CurrentCost(0, 0))
}

func TestCoarseningMergesInsteadOfDropping(t *testing.T) {
	led, err := New(lineGraph(), Options{NumBuckets: 8, MaxLiveBuckets: 4})
	require.NoError(t, err)

	// one commit per bucket on the same edge forces the cap
	step := graph.DayMs / 8
	for i := graph.Timestamp(0); i < 8; i++ {
		require.NoError(t, led.Commit([]graph.EdgeID{0}, i*step))
	}

	fp := led.Footprint()
	assert.LessOrEqual(t, fp.Buckets, 4)
	assert.Greater(t, fp.Coarsenings, 0)
	assert.Greater(t, fp.BucketSize, step)

	// all eight reservations survive the merges
	total := uint32(0)
	for i := range led.used[0].used {
		total += led.used[0].used[i]
	}
	assert.Equal(t, uint32(8), total)
}

func TestOverflowOnlyWhenCoarseningImpossible(t *testing.T) {
	// cap of one live bucket: a path over two edges can never fit
	led, err := New(lineGraph(), Options{NumBuckets: 2, MaxLiveBuckets: 1})
	require.NoError(t, err)

	err = led.Commit([]graph.EdgeID{0, 1}, 0)
	require.ErrorIs(t, err, ErrLedgerOverflow)

	// atomic: the failed commit left nothing behind
	fp := led.Footprint()
	assert.Equal(t, 0, fp.Buckets)

	// a single-edge commit still fits after collapsing to one bucket
	require.NoError(t, led.Commit([]graph.EdgeID{0}, 0))
	assert.Equal(t, 1, led.Footprint().Buckets)
}

func TestInvalidBucketCount(t *testing.T) {
	_, err := New(lineGraph(), Options{NumBuckets: 7})
	require.Error(t, err)
}

func TestBucketIncrementKeepsOrder(t *testing.T) {
	var b buckets
	b.increment(200, 1)
	b.increment(100, 1)
	b.increment(300, 2)
	b.increment(200, 1)

	assert.Equal(t, []graph.Timestamp{100, 200, 300}, b.ts)
	assert.Equal(t, []uint32{1, 2, 2}, b.used)
	assert.Equal(t, uint32(0), b.usedAt(150))
}

func TestBucketCoarsen(t *testing.T) {
	var b buckets
	b.increment(0, 1)
	b.increment(100, 2)
	b.increment(200, 3)
	b.increment(300, 1)

	freed := b.coarsen(200)
	assert.Equal(t, 2, freed)
	assert.Equal(t, []graph.Timestamp{0, 200}, b.ts)
	assert.Equal(t, []uint32{3, 4}, b.used)
}
