package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/azybler/coop_router/pkg/experiments"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare static and cooperative answers for the same queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			orderPath, _ := cmd.Flags().GetString("order")

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

			log.Printf("Comparing %d queries...", len(reqs))
			start := time.Now()
			cmps, err := experiments.CompareStaticCooperative(cmd.Context(), prep, led, reqs, cfg.Workers)
			if err != nil {
				return err
			}
			log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))

			s := experiments.Summarize(cmps)
			fmt.Printf("queries:            %d\n", s.Queries)
			fmt.Printf("feasible:           %d\n", s.Feasible)
			fmt.Printf("diverged routes:    %d\n", s.Diverged)
			fmt.Printf("mean cost increase: %.3fx\n", s.MeanRelIncrease)
			fmt.Printf("max cost increase:  %.3fx\n", s.MaxRelIncrease)
			return nil
		},
	}

	cmd.Flags().String("config", "run.yaml", "Run config path")
	cmd.Flags().String("order", "", "Elimination order file (computed if empty)")

	return cmd
}
