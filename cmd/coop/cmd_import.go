package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/osm"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an OSM PBF extract into a binary graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			bbox, _ := cmd.Flags().GetString("bbox")

			var opts osm.ParseOptions
			if bbox != "" {
				var minLat, minLon, maxLat, maxLon float64
				if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &minLat, &minLon, &maxLat, &maxLon); err != nil {
					return fmt.Errorf("invalid bbox (expected minLat,minLon,maxLat,maxLon): %w", err)
				}
				opts.BBox = osm.BBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}
				log.Printf("Using bounding box filter: lat [%.4f, %.4f], lon [%.4f, %.4f]", minLat, maxLat, minLon, maxLon)
			}

			start := time.Now()

			log.Println("Opening OSM file...")
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			log.Println("Parsing OSM data...")
			raw, err := osm.Parse(cmd.Context(), f, opts)
			if err != nil {
				return fmt.Errorf("parse OSM data: %w", err)
			}
			log.Printf("Parsed %d edges, %d nodes", len(raw.Edges), len(raw.NodeLat))

			log.Println("Building graph...")
			g := graph.Build(raw)
			log.Printf("Graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

			log.Println("Extracting largest connected component...")
			componentNodes := graph.LargestComponent(g)
			log.Printf("Largest component: %d nodes (%.1f%%)", len(componentNodes), float64(len(componentNodes))/float64(g.NumNodes)*100)
			g = graph.FilterToComponent(g, componentNodes)
			log.Printf("Filtered graph: %d nodes, %d edges", g.NumNodes, g.NumEdges)

			log.Printf("Writing binary to %s...", output)
			if err := graph.WriteBinary(output, g); err != nil {
				return fmt.Errorf("write binary: %w", err)
			}

			info, _ := os.Stat(output)
			log.Printf("Done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), output, float64(info.Size())/(1024*1024))
			return nil
		},
	}

	cmd.Flags().String("input", "", "Path to .osm.pbf file (required)")
	cmd.Flags().String("output", "graph.bin", "Output binary graph path")
	cmd.Flags().String("bbox", "", "Bounding box filter: minLat,minLon,maxLat,maxLon")
	cmd.MarkFlagRequired("input")

	return cmd
}
