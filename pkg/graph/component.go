package graph

// UnionFind implements a disjoint-set structure with path halving and
// union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already merged.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node indices of the largest weakly connected
// component (edges treated as undirected).
func LargestComponent(g *Graph) []NodeID {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)
	for u := NodeID(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}

	var best uint32
	bestSize := uint32(0)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestSize = uf.size[root]
			best = root
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for i := uint32(0); i < g.NumNodes; i++ {
		if uf.Find(i) == best {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent returns a new graph restricted to the given nodes,
// with IDs remapped to a compact range. Edge attributes are carried over.
func FilterToComponent(g *Graph, nodes []NodeID) *Graph {
	remap := make([]NodeID, g.NumNodes)
	for i := range remap {
		remap[i] = InvalidNode
	}
	for newID, oldID := range nodes {
		remap[oldID] = NodeID(newID)
	}

	numNodes := uint32(len(nodes))

	// Count surviving edges per node for exact allocation.
	var numEdges uint32
	for _, old := range nodes {
		start, end := g.EdgesFrom(old)
		for e := start; e < end; e++ {
			if remap[g.Head[e]] != InvalidNode {
				numEdges++
			}
		}
	}

	out := &Graph{
		NumNodes:        numNodes,
		NumEdges:        numEdges,
		FirstOut:        make([]uint32, numNodes+1),
		Head:            make([]NodeID, 0, numEdges),
		DistanceM:       make([]uint32, 0, numEdges),
		FreeflowTime:    make([]Weight, 0, numEdges),
		CapacityPerHour: make([]uint32, 0, numEdges),
		NodeLat:         make([]float64, numNodes),
		NodeLon:         make([]float64, numNodes),
	}

	for newID, old := range nodes {
		out.FirstOut[newID] = uint32(len(out.Head))
		out.NodeLat[newID] = g.NodeLat[old]
		out.NodeLon[newID] = g.NodeLon[old]

		start, end := g.EdgesFrom(old)
		for e := start; e < end; e++ {
			v := remap[g.Head[e]]
			if v == InvalidNode {
				continue
			}
			out.Head = append(out.Head, v)
			out.DistanceM = append(out.DistanceM, g.DistanceM[e])
			out.FreeflowTime = append(out.FreeflowTime, g.FreeflowTime[e])
			out.CapacityPerHour = append(out.CapacityPerHour, g.CapacityPerHour[e])
		}
	}
	out.FirstOut[numNodes] = uint32(len(out.Head))

	return out
}
