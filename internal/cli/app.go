package cli

import (
	"fmt"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/logger"
	"github.com/etfnews/newswatch/internal/notify"
	"github.com/etfnews/newswatch/internal/pipeline"
	"github.com/etfnews/newswatch/internal/source"
	"github.com/etfnews/newswatch/internal/store"
)

// app holds everything a pipeline pass needs, built once from config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	sources []*source.Source
	store   store.Store
	channel notify.Channel
}

func openApp(cfg *config.Config) (*app, error) {
	sources, err := source.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}

	ch, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("build channel: %w", err)
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     logger.New(cfg.Log.Level, cfg.Log.Format),
		sources: sources,
		store:   st,
		channel: ch,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// pipeline builds a pass. forceSnapshot sends the snapshot regardless of
// the configured dates.
func (a *app) pipeline(forceSnapshot bool) *pipeline.Pipeline {
	trigger := pipeline.OnDates(a.cfg.Notify.SnapshotDates...)
	if forceSnapshot {
		trigger = pipeline.Always
	}

	collectors := make([]pipeline.Collector, len(a.sources))
	for i, s := range a.sources {
		collectors[i] = s
	}

	return pipeline.New(collectors, a.store, a.channel, a.log, pipeline.Options{
		SummaryHour:  *a.cfg.Notify.SummaryHour,
		TitleWidth:   a.cfg.Notify.TitleWidth,
		SummaryWidth: a.cfg.Notify.SummaryWidth,
		Snapshot:     trigger,
		Location:     a.cfg.Location(),
	})
}
