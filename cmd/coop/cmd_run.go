package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/coop_router/pkg/engine"
	"github.com/azybler/coop_router/pkg/experiments"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a cooperative batch described by a yaml config",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			orderPath, _ := cmd.Flags().GetString("order")
			output, _ := cmd.Flags().GetString("out")

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
			led, err := cfg.NewLedger(g)
			if err != nil {
				return err
			}

			log.Printf("Answering %d queries with %d workers...", len(reqs), cfg.Workers)
			start := time.Now()
			results, err := engine.NewBatchRunner(prep, led, cfg.Workers).Run(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			found := 0
			for _, res := range results {
				if res.Found {
					found++
				}
			}
			fp := led.Footprint()
			log.Printf("Done in %s: %d/%d feasible (%.1f queries/s)",
				elapsed.Round(time.Millisecond), found, len(results),
				float64(len(results))/elapsed.Seconds())
			log.Printf("Ledger: %d live buckets, %.1f KB, bucket size %dms, %d coarsenings",
				fp.Buckets, float64(fp.Bytes)/1024, fp.BucketSize, fp.Coarsenings)

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return experiments.WriteResults(w, reqs, results)
		},
	}

	cmd.Flags().String("config", "run.yaml", "Run config path")
	cmd.Flags().String("order", "", "Elimination order file (computed if empty)")
	cmd.Flags().String("out", "", "Results CSV path (stdout if empty)")

	return cmd
}
