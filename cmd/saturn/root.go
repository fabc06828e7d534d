package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Mercator Saturn - cost-aware LLM response cascading",
	Long: `Mercator Saturn routes LLM queries through a cascade of model tiers
ordered by cost. Each query drafts on the cheapest tier first; a quality
gate decides whether the draft stands or the query escalates to a more
capable tier.

It provides:
  - Complexity-aware routing across OpenAI-compatible backends
  - Logprob-based confidence scoring with per-backend calibration
  - Batch execution with bounded parallelism and per-item retry
  - Response caching and per-tenant rate and budget limits
  - Prometheus metrics for cost, savings, and escalation rates`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "saturn.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
