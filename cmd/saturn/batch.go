package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/batch"
	"mercator-hq/saturn/pkg/cascade"
	"mercator-hq/saturn/pkg/cli"
)

var batchFlags struct {
	format  string
	tenant  string
	minimal bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run a file of queries through the cascade",
	Long: `Run every query in a file through the cascade with bounded parallelism.
The file holds one query per line; blank lines and lines starting with #
are skipped.

Examples:
  # Run a query file with the configured parallelism
  saturn batch queries.txt

  # Full per-item results as JSON
  saturn batch --format json queries.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFlags.format, "format", "text", "output format: text, json")
	batchCmd.Flags().StringVar(&batchFlags.tenant, "tenant", "", "tenant name for rate and budget enforcement")
	batchCmd.Flags().BoolVar(&batchFlags.minimal, "minimal", false, "gate drafts on length only, skipping quality scoring")
}

func runBatch(cmd *cobra.Command, args []string) error {
	queries, err := readQueries(args[0])
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries in %q", args[0])
	}

	eng, err := loadEngine(batchFlags.minimal)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cli.SetupSignalHandler()
	if err := eng.start(ctx); err != nil {
		return err
	}

	progress := cli.NewProgressReporter(nil)
	progress.Start(int64(len(queries)))
	var done atomic.Int64
	run := eng.tenantRun(batchFlags.tenant)
	counted := func(ctx context.Context, query string) (*cascade.Result, error) {
		result, err := run(ctx, query)
		progress.Update(done.Add(1))
		return result, err
	}

	var metrics batch.Metrics
	if eng.collector != nil {
		metrics = eng.collector
	}
	executor, err := batch.NewExecutor(eng.cfg.Batch, counted, metrics, nil)
	if err != nil {
		return err
	}

	result, err := executor.Execute(ctx, queries)
	if err != nil {
		progress.Error(err)
		return cli.NewCommandError("batch", err)
	}
	progress.Finish()

	if batchFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	fmt.Printf("queries:   %d\n", len(result.Items))
	fmt.Printf("succeeded: %d\n", result.Succeeded)
	fmt.Printf("failed:    %d\n", result.Failed)
	fmt.Printf("cost:      $%.4f\n", result.TotalCost)
	fmt.Printf("savings:   $%.4f\n", result.TotalSavings)
	fmt.Printf("duration:  %s\n", result.Duration)
	if result.TimedOut {
		fmt.Println("note: total timeout reached before all items completed")
	}
	for _, item := range result.Items {
		if item.Err != "" {
			fmt.Fprintf(os.Stderr, "item %d failed (%s): %s\n", item.Index, item.Err, truncate(item.Query, 60))
		}
	}
	return nil
}

// readQueries loads one query per line, skipping blanks and # comments.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	return queries, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
