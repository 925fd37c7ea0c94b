// Package cch builds a customizable contraction hierarchy from a road graph
// and an elimination order. The order is an immutable artifact; weight
// customization is a pure function of (topology, metric) and is re-run
// whenever edge weights change, never mutating a shared hierarchy in place.
package cch

import (
	"container/heap"
	"errors"
	"fmt"
	"log"

	"github.com/azybler/coop_router/pkg/graph"
)

var (
	// ErrMissingOrder is returned when the elimination order omits or
	// duplicates a node.
	ErrMissingOrder = errors.New("elimination order is not a permutation")

	// ErrInconsistentRank is returned when a hierarchy arc references a
	// higher-ranked node as an eliminated one.
	ErrInconsistentRank = errors.New("hierarchy arc violates rank order")
)

// Order is an elimination order: Order[rank] = node eliminated at that rank.
type Order []graph.NodeID

// Validate checks that the order is a permutation of 0..n-1.
func (o Order) Validate(numNodes uint32) error {
	if uint32(len(o)) != numNodes {
		return fmt.Errorf("order has %d entries for %d nodes: %w", len(o), numNodes, ErrMissingOrder)
	}
	seen := make([]bool, numNodes)
	for _, node := range o {
		if node >= numNodes || seen[node] {
			return fmt.Errorf("node %d: %w", node, ErrMissingOrder)
		}
		seen[node] = true
	}
	return nil
}

// Ranks returns the inverse permutation: node -> rank.
func (o Order) Ranks() []uint32 {
	rank := make([]uint32, len(o))
	for r, node := range o {
		rank[node] = uint32(r)
	}
	return rank
}

// ComputeOrder derives an elimination order with a greedy edge-difference
// heuristic and lazy priority updates. Callers with an externally computed
// (e.g. nested-dissection) order should prefer that; this exists so the
// hierarchy can be built from a bare graph.
func ComputeOrder(g *graph.Graph) Order {
	n := g.NumNodes
	if n == 0 {
		return Order{}
	}

	// Undirected adjacency sets; contraction inserts fill-in edges here.
	adj := make([]map[graph.NodeID]struct{}, n)
	for u := graph.NodeID(0); u < n; u++ {
		adj[u] = make(map[graph.NodeID]struct{})
	}
	for u := graph.NodeID(0); u < n; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if v == u {
				continue
			}
			adj[u][v] = struct{}{}
			adj[v][u] = struct{}{}
		}
	}

	eliminated := make([]bool, n)
	contractedNeighbors := make([]int, n)
	level := make([]int, n)

	prio := func(u graph.NodeID) int {
		deg := 0
		for v := range adj[u] {
			if !eliminated[v] {
				deg++
			}
		}
		edgeDifference := deg*(deg-1)/2 - deg
		return edgeDifference + 2*contractedNeighbors[u] + level[u]
	}

	pq := make(orderQueue, n)
	for i := graph.NodeID(0); i < n; i++ {
		pq[i] = &orderEntry{node: i, priority: prio(i), index: int(i)}
	}
	heap.Init(&pq)

	order := make(Order, 0, n)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*orderEntry)
		u := entry.node
		if eliminated[u] {
			continue
		}

		// Lazy update: if the priority got worse than the current best,
		// push back and retry.
		if newPrio := prio(u); pq.Len() > 0 && newPrio > entry.priority && newPrio > pq[0].priority {
			entry.priority = newPrio
			heap.Push(&pq, entry)
			continue
		}

		eliminated[u] = true
		order = append(order, u)

		var neighbors []graph.NodeID
		for v := range adj[u] {
			if !eliminated[v] {
				neighbors = append(neighbors, v)
			}
		}
		for _, v := range neighbors {
			contractedNeighbors[v]++
			if level[u]+1 > level[v] {
				level[v] = level[u] + 1
			}
		}
		// Fill-in: clique the remaining neighbors.
		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				a, b := neighbors[i], neighbors[j]
				adj[a][b] = struct{}{}
				adj[b][a] = struct{}{}
			}
		}

		if len(order)%100000 == 0 {
			log.Printf("Ordered %d/%d nodes", len(order), n)
		}
	}

	return order
}

type orderEntry struct {
	node     graph.NodeID
	priority int
	index    int
}

type orderQueue []*orderEntry

func (pq orderQueue) Len() int { return len(pq) }
func (pq orderQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}
func (pq orderQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *orderQueue) Push(x any) {
	entry := x.(*orderEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *orderQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
