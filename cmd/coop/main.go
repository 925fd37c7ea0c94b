package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coop",
		Short: "Cooperative capacity-aware route planning",
		Long: `coop imports OSM road networks and answers batches of routing queries
cooperatively: every answered route reserves capacity on the edges it uses,
so later queries are steered around the traffic earlier ones created.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newImportCmd(),
		newOrderCmd(),
		newRunCmd(),
		newCompareCmd(),
		newStorageCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
