// Package osm imports car-routable road networks from OSM PBF extracts,
// deriving per-edge free-flow travel times and hourly capacities from the
// way tags.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/azybler/coop_router/pkg/geo"
	"github.com/azybler/coop_router/pkg/graph"
)

// roadClass carries the routing defaults of one highway tag value.
type roadClass struct {
	speedKmh        uint32
	capacityPerHour uint32
}

// carHighways lists highway tag values accessible by car, with default
// free-flow speeds and per-lane-ish hourly throughput.
var carHighways = map[string]roadClass{
	"motorway":       {120, 2000},
	"motorway_link":  {60, 1500},
	"trunk":          {100, 2000},
	"trunk_link":     {50, 1500},
	"primary":        {80, 1500},
	"primary_link":   {40, 1000},
	"secondary":      {60, 1000},
	"secondary_link": {40, 800},
	"tertiary":       {50, 800},
	"tertiary_link":  {30, 600},
	"unclassified":   {40, 600},
	"residential":    {30, 600},
	"living_street":  {10, 300},
	"service":        {15, 300},
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if _, ok := carHighways[tags.Find("highway")]; !ok {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent access — skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// speedKmh resolves the free-flow speed of a way: an explicit maxspeed tag
// when parseable, the highway class default otherwise.
func speedKmh(tags osm.Tags) uint32 {
	class := carHighways[tags.Find("highway")]

	ms := strings.TrimSpace(tags.Find("maxspeed"))
	if ms == "" || ms == "none" || ms == "signals" {
		return class.speedKmh
	}

	factor := 1.0
	if v, ok := strings.CutSuffix(ms, "mph"); ok {
		ms = strings.TrimSpace(v)
		factor = 1.609344
	}
	v, err := strconv.ParseUint(ms, 10, 32)
	if err != nil || v == 0 {
		return class.speedKmh
	}
	return uint32(math.Round(float64(v) * factor))
}

// capacityPerHour resolves the hourly throughput of a way from its highway
// class, scaled by an explicit lanes tag when present.
func capacityPerHour(tags osm.Tags, forward, backward bool) uint32 {
	class := carHighways[tags.Find("highway")]

	lanes, err := strconv.ParseUint(tags.Find("lanes"), 10, 32)
	if err != nil || lanes == 0 {
		return class.capacityPerHour
	}
	if forward && backward {
		// lanes counts both directions on bidirectional ways
		lanes = (lanes + 1) / 2
	}
	return class.capacityPerHour * uint32(lanes)
}

// wayInfo holds parsed way data collected during pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	SpeedKmh uint32
	Capacity uint32
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLon == 0 && b.MaxLon == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

// Parse reads an OSM PBF file and returns raw directed edges for car
// routing. The reader is consumed twice (seeks back to start for the second
// pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*graph.RawGraph, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}

		if !isCarAccessible(w.Tags) {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			SpeedKmh: speedKmh(w.Tags),
			Capacity: capacityPerHour(w.Tags, fwd, bwd),
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	// Pass 2: scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[int64]float64, len(referencedNodes))
	nodeLon := make(map[int64]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[int64(n.ID)] = n.Lat
		nodeLon[int64(n.ID)] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node coordinates collected", len(nodeLat))

	// Build directed edges from ways.
	var edges []graph.RawEdge
	var skippedEdges int
	var bboxFiltered int

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := int64(w.NodeIDs[i])
			toID := int64(w.NodeIDs[i+1])

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skippedEdges++
				continue
			}
			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			distM := uint32(math.Round(geo.Haversine(fromLat, fromLon, toLat, toLon)))
			if distM == 0 {
				distM = 1 // avoid zero-length edges
			}
			// 3.6 s per km at 1 km/h
			ttMs := graph.Weight(math.Round(float64(distM) * 3600.0 / float64(w.SpeedKmh)))
			if ttMs == 0 {
				ttMs = 1
			}

			if w.Forward {
				edges = append(edges, graph.RawEdge{
					From: fromID, To: toID,
					DistanceM:       distM,
					FreeflowTime:    ttMs,
					CapacityPerHour: w.Capacity,
				})
			}
			if w.Backward {
				edges = append(edges, graph.RawEdge{
					From: toID, To: fromID,
					DistanceM:       distM,
					FreeflowTime:    ttMs,
					CapacityPerHour: w.Capacity,
				})
			}
		}
	}

	if skippedEdges > 0 {
		log.Printf("Warning: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("Built %d directed edges", len(edges))

	return &graph.RawGraph{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}
