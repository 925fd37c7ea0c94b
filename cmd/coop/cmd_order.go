package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/azybler/coop_router/pkg/cch"
)

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Compute an elimination order for a graph",
		Long: `Computes a greedy edge-difference elimination order and writes it as one
node ID per line. The order only depends on the topology, so it can be
reused across runs with different costs and penalties.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			graphPath, _ := cmd.Flags().GetString("graph")
			output, _ := cmd.Flags().GetString("output")

			g, err := loadGraph(graphPath)
			if err != nil {
				return err
			}

			order, err := loadOrder("", g)
			if err != nil {
				return err
			}

			// sanity-check before building anything on top of it
			if err := order.Validate(g.NumNodes); err != nil {
				return err
			}
			topo, err := cch.BuildTopology(g, order)
			if err != nil {
				return err
			}
			log.Printf("Order yields %d hierarchy arcs (%.2fx the edge count)",
				topo.NumArcs(), float64(topo.NumArcs())/float64(g.NumEdges))

			if err := writeOrder(output, order); err != nil {
				return err
			}
			log.Printf("Order written to %s", output)
			return nil
		},
	}

	cmd.Flags().String("graph", "", "Binary graph path (required)")
	cmd.Flags().String("output", "order.txt", "Output order file path")
	cmd.MarkFlagRequired("graph")

	return cmd
}
