package graph

import "sort"

// RawEdge is a directed arc as delivered by an importer, keyed by external
// (e.g. OSM) node IDs.
type RawEdge struct {
	From, To        int64
	DistanceM       uint32
	FreeflowTime    Weight // milliseconds
	CapacityPerHour uint32
}

// RawGraph is the importer handoff format: edges plus coordinates keyed by
// external node ID.
type RawGraph struct {
	Edges   []RawEdge
	NodeLat map[int64]float64
	NodeLon map[int64]float64
}

// Build creates a CSR Graph from raw edges. External node IDs are remapped
// to a compact range, self-loops are dropped and duplicate arcs merged by
// minimum free-flow time (keeping the larger capacity).
func Build(raw *RawGraph) *Graph {
	if len(raw.Edges) == 0 {
		return &Graph{FirstOut: []uint32{0}}
	}

	// Step 1: compact node ID mapping, in first-seen order.
	nodeSet := make(map[int64]NodeID)
	var nodeIDs []int64

	addNode := func(id int64) NodeID {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := NodeID(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	type compactEdge struct {
		from, to NodeID
		dist     uint32
		tt       Weight
		cap      uint32
	}

	edges := make([]compactEdge, 0, len(raw.Edges))
	for i := range raw.Edges {
		e := &raw.Edges[i]
		if e.From == e.To {
			continue
		}
		edges = append(edges, compactEdge{
			from: addNode(e.From),
			to:   addNode(e.To),
			dist: e.DistanceM,
			tt:   e.FreeflowTime,
			cap:  e.CapacityPerHour,
		})
	}

	numNodes := uint32(len(nodeIDs))

	// Step 2: sort by (from, to) so duplicates are adjacent and CSR order
	// falls out directly.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})

	// Step 3: merge multi-edges by minimum travel time.
	merged := edges[:0]
	for _, e := range edges {
		if n := len(merged); n > 0 && merged[n-1].from == e.from && merged[n-1].to == e.to {
			if e.tt < merged[n-1].tt {
				merged[n-1].tt = e.tt
				merged[n-1].dist = e.dist
			}
			if e.cap > merged[n-1].cap {
				merged[n-1].cap = e.cap
			}
			continue
		}
		merged = append(merged, e)
	}
	edges = merged

	numEdges := uint32(len(edges))

	g := &Graph{
		NumNodes:        numNodes,
		NumEdges:        numEdges,
		FirstOut:        make([]uint32, numNodes+1),
		Head:            make([]NodeID, numEdges),
		DistanceM:       make([]uint32, numEdges),
		FreeflowTime:    make([]Weight, numEdges),
		CapacityPerHour: make([]uint32, numEdges),
		NodeLat:         make([]float64, numNodes),
		NodeLon:         make([]float64, numNodes),
	}

	for _, e := range edges {
		g.FirstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		g.FirstOut[i] += g.FirstOut[i-1]
	}
	for i, e := range edges {
		g.Head[i] = e.to
		g.DistanceM[i] = e.dist
		g.FreeflowTime[i] = e.tt
		g.CapacityPerHour[i] = e.cap
	}

	for id, idx := range nodeSet {
		g.NodeLat[idx] = raw.NodeLat[id]
		g.NodeLon[idx] = raw.NodeLon[id]
	}

	return g
}

// WithProfiles switches the graph to time-dependent mode. The slice must
// hold one profile per edge; empty profiles fall back to the free-flow time.
func (g *Graph) WithProfiles(profiles []Profile) *Graph {
	out := *g
	out.Profiles = profiles
	return &out
}
