package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/cascade"
	"mercator-hq/saturn/pkg/cli"
)

var runFlags struct {
	format  string
	stream  bool
	minimal bool
	tenant  string
}

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one query through the cascade",
	Long: `Run a single query through the configured tier cascade and print the
final answer with cost and routing details.

Examples:
  # Draft on the cheapest tier, escalate only if the gate rejects
  saturn run "Explain the CAP theorem"

  # Stream tokens as they arrive, including mid-stream tier switches
  saturn run --stream "Summarize the attached design"

  # Machine-readable result with per-tier breakdown
  saturn run --format json "What is 2+2?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "output format: text, json")
	runCmd.Flags().BoolVar(&runFlags.stream, "stream", false, "stream the answer as it generates")
	runCmd.Flags().BoolVar(&runFlags.minimal, "minimal", false, "gate drafts on length only, skipping quality scoring")
	runCmd.Flags().StringVar(&runFlags.tenant, "tenant", "", "tenant name for rate and budget enforcement")
}

func runQuery(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine(runFlags.minimal)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cli.SetupSignalHandler()
	if err := eng.start(ctx); err != nil {
		return err
	}

	if runFlags.stream {
		return streamQuery(ctx, eng, args[0])
	}

	result, err := eng.tenantRun(runFlags.tenant)(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if runFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	fmt.Println(result.Content)
	fmt.Fprintf(os.Stderr, "\ntier=%s cascaded=%v cost=$%.4f savings=$%.4f latency=%s\n",
		result.FinalTier, result.Cascaded, result.TotalCost, result.Savings, result.TotalLatency)
	return nil
}

func streamQuery(ctx context.Context, eng *engine, query string) error {
	events, err := eng.streamEvents(ctx, runFlags.tenant, query)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	var final *cascade.Result
	for event := range events {
		switch event.Type {
		case cascade.EventRouting:
			fmt.Fprintf(os.Stderr, "routing to tier %s\n", event.TierID)
		case cascade.EventChunk:
			fmt.Print(event.Delta)
		case cascade.EventDraftDecision:
			if event.Decision != nil && !event.Decision.Passed {
				fmt.Fprintf(os.Stderr, "\ndraft rejected: %s\n", event.Decision.Reason)
			}
		case cascade.EventSwitch:
			fmt.Fprintf(os.Stderr, "escalating to tier %s\n", event.TierID)
		case cascade.EventComplete:
			final = event.Result
		case cascade.EventError:
			return cli.NewCommandError("run", event.Err)
		}
	}
	fmt.Println()
	if final != nil {
		fmt.Fprintf(os.Stderr, "tier=%s cascaded=%v cost=$%.4f savings=$%.4f\n",
			final.FinalTier, final.Cascaded, final.TotalCost, final.Savings)
	}
	return nil
}
