// Package pipeline runs one check: collect every source, announce what is
// new, and remember what was seen.
package pipeline

import (
	"context"
	"time"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
	"github.com/etfnews/newswatch/internal/logger"
	"github.com/etfnews/newswatch/internal/notify"
	"github.com/etfnews/newswatch/internal/source"
	"github.com/etfnews/newswatch/internal/store"
)

// Collector is a source the pipeline can read. *source.Source satisfies it.
type Collector interface {
	Info() source.Info
	Collect(ctx context.Context) ([]item.Item, error)
}

// SnapshotTrigger decides whether a run also sends the current-items
// snapshot. now is already in the configured location.
type SnapshotTrigger func(now time.Time) bool

// OnDates fires on any of the given YYYY-MM-DD dates.
func OnDates(dates ...string) SnapshotTrigger {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return func(now time.Time) bool {
		return set[now.Format(time.DateOnly)]
	}
}

// Always fires on every run.
func Always(time.Time) bool { return true }

// Options tune message layout and the optional messages.
type Options struct {
	// SummaryHour is the local hour at which a quiet run sends the daily
	// summary; -1 disables it.
	SummaryHour  int
	TitleWidth   int
	SummaryWidth int
	Snapshot     SnapshotTrigger
	Location     *time.Location
	Now          func() time.Time
}

// Pipeline wires sources to a store and a channel.
type Pipeline struct {
	sources []Collector
	store   store.Store
	channel notify.Channel
	log     *logger.Logger
	opts    Options
}

// New creates a pipeline. Sources are processed in the given order.
func New(sources []Collector, st store.Store, ch notify.Channel, log *logger.Logger, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{sources: sources, store: st, channel: ch, log: log, opts: opts}
}

// SourceReport is what happened to one source during a run.
type SourceReport struct {
	Name     string
	Found    int
	New      int
	Notified bool
	Saved    bool
	Errors   []error
}

func (r *SourceReport) fail(err error) {
	r.Errors = append(r.Errors, err)
}

// Kinds counts the source's errors by kind. Unclassified errors count
// under the empty kind.
func (r SourceReport) Kinds() map[failure.Kind]int {
	out := make(map[failure.Kind]int, len(r.Errors))
	for _, err := range r.Errors {
		out[failure.KindOf(err)]++
	}
	return out
}

// Report summarizes a run.
type Report struct {
	Sources      []SourceReport
	Notified     int // new-item messages delivered
	SnapshotSent bool
	SummarySent  bool
}

// Failures counts errors across all sources by kind.
func (r Report) Failures() map[failure.Kind]int {
	out := make(map[failure.Kind]int)
	for _, s := range r.Sources {
		for kind, n := range s.Kinds() {
			out[kind] += n
		}
	}
	return out
}

// Failed reports whether any source hit an error.
func (r Report) Failed() bool {
	for _, s := range r.Sources {
		if len(s.Errors) > 0 {
			return true
		}
	}
	return false
}

type collected struct {
	src   Collector
	items []item.Item
}

// Run performs one pass. Recoverable per-source failures are logged and
// recorded in the report; they never stop the other sources. A fatal
// (config) failure aborts the pass before anything is notified or saved
// and is returned, as is a cancelled context.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	now := p.opts.Now().In(p.opts.Location)
	log, _ := p.log.ForRun()
	log.Info("run started", "sources", len(p.sources), "channel", p.channel.Name())

	report := Report{Sources: make([]SourceReport, len(p.sources))}

	results := make([]collected, len(p.sources))
	for i, src := range p.sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		info := src.Info()
		report.Sources[i].Name = info.Name

		items, err := src.Collect(ctx)
		if err != nil {
			if failure.IsFatal(err) {
				log.Error("collect failed, aborting run", "source", info.Name, "kind", failure.KindOf(err), "error", err)
				return report, err
			}
			log.Warn("collect failed", "source", info.Name, "kind", failure.KindOf(err), "error", err)
			report.Sources[i].fail(err)
		}
		log.Info("collected", "source", info.Name, "items", len(items))
		report.Sources[i].Found = len(items)
		results[i] = collected{src: src, items: items}
	}

	if p.opts.Snapshot != nil && p.opts.Snapshot(now) {
		report.SnapshotSent = p.sendSnapshot(ctx, log, results, now)
	}

	for i, res := range results {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.process(ctx, log, res, now, &report.Sources[i])
		if report.Sources[i].Notified {
			report.Notified++
		}
	}

	if report.Notified == 0 && p.opts.SummaryHour >= 0 && now.Hour() == p.opts.SummaryHour {
		report.SummarySent = p.sendSummary(ctx, log, results, now)
	}

	log.Info("run finished",
		"notified", report.Notified,
		"snapshot", report.SnapshotSent,
		"summary", report.SummarySent,
		"failed", report.Failed(),
	)
	return report, nil
}

// process diffs, announces and saves one source.
func (p *Pipeline) process(ctx context.Context, log *logger.Logger, res collected, now time.Time, rep *SourceReport) {
	info := res.src.Info()
	log = log.With("source", info.Name)

	stored, err := p.store.Load(ctx, info.State)
	if err != nil {
		log.Warn("load state failed, treating as empty", "state", info.State, "kind", failure.KindOf(err), "error", err)
		rep.fail(err)
		stored = nil
	}

	fresh := item.Diff(res.items, stored)
	rep.New = len(fresh)
	log.Info("diffed", "stored", len(stored), "new", len(fresh))

	if len(fresh) > 0 {
		msg := notify.NewItems(messageSource(info), fresh, p.opts.TitleWidth, now)
		sent, err := notify.Deliver(ctx, p.channel, msg)
		if err != nil {
			log.Error("notify failed", "kind", failure.KindOf(err), "error", err)
			rep.fail(err)
		}
		rep.Notified = sent
	}

	// An empty extraction usually means the fetch failed; keep what we had.
	if len(res.items) == 0 {
		log.Debug("nothing extracted, state left untouched")
		return
	}

	if err := p.store.Save(ctx, info.State, item.Merge(res.items, stored)); err != nil {
		log.Error("save state failed", "state", info.State, "kind", failure.KindOf(err), "error", err)
		rep.fail(err)
		return
	}
	rep.Saved = true
}

func (p *Pipeline) sendSnapshot(ctx context.Context, log *logger.Logger, results []collected, now time.Time) bool {
	sections := make([]notify.SnapshotSection, len(results))
	for i, res := range results {
		sections[i] = notify.SnapshotSection{Source: messageSource(res.src.Info()), Items: res.items}
	}

	sent, err := notify.Deliver(ctx, p.channel, notify.Snapshot(sections, p.opts.SummaryWidth, now))
	if err != nil {
		log.Error("snapshot failed", "kind", failure.KindOf(err), "error", err)
		return false
	}
	if sent {
		log.Info("snapshot sent")
	}
	return sent
}

func (p *Pipeline) sendSummary(ctx context.Context, log *logger.Logger, results []collected, now time.Time) bool {
	counts := make([]notify.Count, len(results))
	for i, res := range results {
		counts[i] = notify.Count{Source: messageSource(res.src.Info()), N: len(res.items)}
	}

	sent, err := notify.Deliver(ctx, p.channel, notify.DailySummary(counts, now))
	if err != nil {
		log.Error("daily summary failed", "kind", failure.KindOf(err), "error", err)
		return false
	}
	log.Info("daily summary sent")
	return sent
}

func messageSource(info source.Info) notify.Source {
	return notify.Source{
		Label:   info.Label,
		Icon:    info.Icon,
		Noun:    info.Noun,
		Heading: info.Heading,
	}
}
