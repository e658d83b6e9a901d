package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gfcm",
		Short: "Generalised Fuzzy Cognitive Map simulator",
		Long: `gfcm simulates Generalised Fuzzy Cognitive Maps.

Concept weights and initial activations are triangular fuzzy numbers read
from CSV or XLSX tables. Activation propagates through the weight matrix,
is squashed by tanh, and the full fuzzy and crisp trajectory is reported.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (holds .gfcm/)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRunCmd(),
		newSweepCmd(),
		newMetricsCmd(),
		newGraphCmd(),
		newBuildCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}
