package ledger

import (
	"sort"

	"github.com/azybler/coop_router/pkg/graph"
)

// buckets holds the used capacity of one edge, keyed by bucket start time.
// Both slices stay sorted by timestamp and are empty until the first
// reservation touches the edge.
type buckets struct {
	ts   []graph.Timestamp
	used []uint32
}

// usedAt returns the reservation count of the bucket starting at ts, zero if
// the bucket was never touched.
func (b *buckets) usedAt(ts graph.Timestamp) uint32 {
	i := sort.Search(len(b.ts), func(i int) bool { return b.ts[i] >= ts })
	if i < len(b.ts) && b.ts[i] == ts {
		return b.used[i]
	}
	return 0
}

// increment adds amount to the bucket starting at ts, creating it if needed.
// Returns true when a new bucket was inserted.
func (b *buckets) increment(ts graph.Timestamp, amount uint32) bool {
	i := sort.Search(len(b.ts), func(i int) bool { return b.ts[i] >= ts })
	if i < len(b.ts) && b.ts[i] == ts {
		b.used[i] += amount
		return false
	}
	b.ts = append(b.ts, 0)
	b.used = append(b.used, 0)
	copy(b.ts[i+1:], b.ts[i:])
	copy(b.used[i+1:], b.used[i:])
	b.ts[i] = ts
	b.used[i] = amount
	return true
}

// coarsen remaps every bucket onto the grid of newBucketMs, summing counts
// that land in the same coarser bucket. Returns the number of buckets freed
// by merging.
func (b *buckets) coarsen(newBucketMs graph.Timestamp) int {
	if len(b.ts) == 0 {
		return 0
	}
	w := 0
	for i := range b.ts {
		start := b.ts[i] - b.ts[i]%newBucketMs
		if w > 0 && b.ts[w-1] == start {
			b.used[w-1] += b.used[i]
			continue
		}
		b.ts[w] = start
		b.used[w] = b.used[i]
		w++
	}
	freed := len(b.ts) - w
	b.ts = b.ts[:w]
	b.used = b.used[:w]
	return freed
}

func (b *buckets) reset() {
	b.ts = nil
	b.used = nil
}
