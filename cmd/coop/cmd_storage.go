package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/azybler/coop_router/pkg/experiments"
)

func newStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Replay a batch under different ledger size caps",
		Long: `Replays the configured query batch once per live-bucket cap and reports
the resulting ledger footprint, showing where coarsening sets in and where
even the coarsest granularity no longer holds the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			orderPath, _ := cmd.Flags().GetString("order")
			caps, _ := cmd.Flags().GetIntSlice("caps")

			cfg, err := experiments.LoadConfig(configPath)
			if err != nil {
				return err
			}

			g, err := loadGraph(cfg.GraphPath)
			if err != nil {
				return err
			}
			reqs, err := loadQueries(cfg.QueriesPath)
			if err != nil {
				return err
			}
			prep, err := preparePotential(cfg, g, orderPath)
			if err != nil {
				return err
			}

			log.Printf("Evaluating %d caps over %d queries...", len(caps), len(reqs))
			points, err := experiments.EvaluateStorage(cmd.Context(), cfg, prep, g, reqs, caps)
			if err != nil {
				return err
			}

			fmt.Printf("%12s %12s %12s %14s %12s %10s\n",
				"cap", "buckets", "bytes", "bucket_ms", "coarsenings", "overflow")
			for _, p := range points {
				label := fmt.Sprintf("%d", p.MaxLiveBuckets)
				if p.MaxLiveBuckets == 0 {
					label = "unbounded"
				}
				fmt.Printf("%12s %12d %12d %14d %12d %10v\n",
					label, p.Footprint.Buckets, p.Footprint.Bytes,
					p.Footprint.BucketSize, p.Footprint.Coarsenings, p.Overflowed)
			}
			return nil
		},
	}

	cmd.Flags().String("config", "run.yaml", "Run config path")
	cmd.Flags().String("order", "", "Elimination order file (computed if empty)")
	cmd.Flags().IntSlice("caps", []int{0}, "Live-bucket caps to evaluate")

	return cmd
}
