package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, reporting every problem at
once rather than stopping at the first.

Examples:
  saturn validate
  saturn validate --config production.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	fmt.Printf("configuration valid: %s\n\n", cfgFile)
	fmt.Printf("backends: %d\n", len(cfg.Backends))
	for _, b := range cfg.Backends {
		fmt.Printf("  %-12s %s\n", b.Name, b.BaseURL)
	}

	sorted := make([]int, len(cfg.Tiers))
	for i := range sorted {
		sorted[i] = i
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return cfg.Tiers[sorted[a]].CostPer1K < cfg.Tiers[sorted[b]].CostPer1K
	})

	fmt.Printf("\ntiers (cheapest first): %d\n", len(cfg.Tiers))
	for _, i := range sorted {
		t := cfg.Tiers[i]
		fmt.Printf("  %-12s %s/%s  $%.4f/1k tokens\n", t.ID, t.Backend, t.Model, t.CostPer1K)
	}

	if cfg.Cache.Enabled {
		fmt.Printf("\ncache: enabled (ttl %s)\n", cfg.Cache.TTL)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Println("metrics: enabled")
	}
	return nil
}
