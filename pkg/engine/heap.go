package engine

import "github.com/azybler/coop_router/pkg/graph"

// pqItem is a frontier entry. dist is the tentative cost used for stale
// detection, key is dist plus the potential.
type pqItem struct {
	node graph.NodeID
	dist graph.Weight
	key  graph.Weight
	seq  uint32
}

// minHeap is a concrete-typed min-heap keyed by (key, seq). Avoids interface
// boxing overhead of container/heap. The monotone sequence number makes ties
// pop in insertion order, which keeps searches deterministic.
type minHeap struct {
	items []pqItem
	seq   uint32
}

func (h *minHeap) len() int { return len(h.items) }

func (h *minHeap) push(node graph.NodeID, dist, key graph.Weight) {
	h.items = append(h.items, pqItem{node, dist, key, h.seq})
	h.seq++
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *minHeap) reset() {
	h.items = h.items[:0]
	h.seq = 0
}

func (h *minHeap) before(i, j int) bool {
	if h.items[i].key != h.items[j].key {
		return h.items[i].key < h.items[j].key
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.before(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.before(left, smallest) {
			smallest = left
		}
		if right < n && h.before(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
