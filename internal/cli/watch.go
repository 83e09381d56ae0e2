package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const defaultSchedule = "0 */6 * * *"

var (
	watchCron string
	watchNow  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run checks on a cron schedule until interrupted",
	RunE:  watchAction,
}

func init() {
	watchCmd.Flags().StringVar(&watchCron, "cron", defaultSchedule, "cron schedule (5 fields or @every/@hourly descriptors)")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "run one check immediately before waiting for the schedule")
}

func watchAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	p := a.pipeline(false)
	a.log.Info("watching", "schedule", watchCron, "timezone", cfg.Notify.Timezone)

	return runWatch(cmdContext(cmd), watchCron, cfg.Location(), watchNow, a.log, func(ctx context.Context) error {
		report, err := p.Run(ctx)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	})
}

// runWatch calls pass on every tick of schedule until ctx is done. A tick
// that arrives while the previous pass is still running is skipped, and a
// panicking pass is logged instead of ending the watch.
func runWatch(ctx context.Context, schedule string, loc *time.Location, now bool, log *logger.Logger, pass func(context.Context) error) error {
	clog := cronLogger{log: log}
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(clog))

	job := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).Then(cron.FuncJob(func() {
		if err := pass(ctx); err != nil && ctx.Err() == nil {
			log.Error("check failed", "kind", failure.KindOf(err), "error", err)
		}
	}))
	if _, err := c.AddJob(schedule, job); err != nil {
		return fmt.Errorf("parse --cron %q: %w", schedule, err)
	}

	if now {
		job.Run()
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
