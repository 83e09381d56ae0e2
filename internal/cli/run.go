package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/pipeline"
	"github.com/spf13/cobra"
)

var runSnapshot bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every source once and announce new posts",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().BoolVar(&runSnapshot, "snapshot", false, "also send the current-items snapshot")
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	report, err := runOnce(cmdContext(cmd), cfg, runSnapshot)
	if err != nil {
		return runError(err)
	}
	printReport(report)
	return nil
}

// runError keeps only fatal failures and interruptions as command errors.
// Anything else is reported and the command still succeeds.
func runError(err error) error {
	if failure.IsFatal(err) || errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("Run incomplete (%s): %v\n", kindName(failure.KindOf(err)), err)
	return nil
}

// runOnce performs a single pipeline pass.
func runOnce(ctx context.Context, cfg *config.Config, snapshot bool) (pipeline.Report, error) {
	a, err := openApp(cfg)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer func() { _ = a.Close() }()

	return a.pipeline(snapshot).Run(ctx)
}

func printReport(report pipeline.Report) {
	if report.Notified == 0 {
		fmt.Println("No new posts found")
	} else {
		fmt.Printf("Sent %d notification(s)\n", report.Notified)
	}
	if report.SnapshotSent {
		fmt.Println("Snapshot sent")
	}
	if report.SummarySent {
		fmt.Println("Daily summary sent")
	}
	if failures := report.Failures(); len(failures) > 0 {
		fmt.Printf("Recovered errors: %s\n", formatKinds(failures))
	}
}

func formatKinds(counts map[failure.Kind]int) string {
	parts := make([]string, 0, len(counts))
	for kind, n := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", kindName(kind), n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func kindName(kind failure.Kind) string {
	if kind == "" {
		return "other"
	}
	return string(kind)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
