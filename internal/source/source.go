// Package source fetches monitored pages and extracts announcement items
// from them.
package source

import (
	"context"
	"fmt"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/item"
)

// Info describes a monitored page for logging, messages and state lookup.
type Info struct {
	Name    string // config identifier, e.g. "etf"
	Label   string // display label stored on items, e.g. "ETF"
	Icon    string
	Noun    string // what the page lists, e.g. "announcements"
	Heading string // snapshot section title, e.g. "Announcements"
	URL     string
	State   string // state key or file name in the store
}

// PageFetcher retrieves raw markup for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Extractor turns raw markup into an ordered, bounded list of items.
type Extractor interface {
	Extract(markup string) ([]item.Item, error)
}

// Source pairs a page with the rules for reading it.
type Source struct {
	info      Info
	fetcher   PageFetcher
	extractor Extractor
}

// New creates a source.
func New(info Info, fetcher PageFetcher, extractor Extractor) *Source {
	return &Source{info: info, fetcher: fetcher, extractor: extractor}
}

// Info returns the source description.
func (s *Source) Info() Info {
	return s.info
}

// Collect fetches the page and extracts its items. Errors are classified
// as failure.Fetch or failure.Parse; on error no items are returned.
func (s *Source) Collect(ctx context.Context) ([]item.Item, error) {
	markup, err := s.fetcher.Fetch(ctx, s.info.URL)
	if err != nil {
		return nil, err
	}
	items, err := s.extractor.Extract(markup)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FromConfig builds one Source per configured page, sharing a fetcher.
func FromConfig(cfg *config.Config) ([]*Source, error) {
	fetcher := NewFetcher(cfg.Fetch.UserAgent, cfg.Fetch.Timeout.Duration)

	sources := make([]*Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		ex, err := NewExtractor(sc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}
		sources = append(sources, New(InfoFromConfig(sc), fetcher, ex))
	}
	return sources, nil
}

// InfoFromConfig maps a source config onto its description.
func InfoFromConfig(sc config.SourceConfig) Info {
	return Info{
		Name:    sc.Name,
		Label:   sc.Label,
		Icon:    sc.Icon,
		Noun:    sc.Noun,
		Heading: sc.Heading,
		URL:     sc.URL,
		State:   sc.State,
	}
}

// NewExtractor builds the extractor for a source config's kind.
func NewExtractor(sc config.SourceConfig) (Extractor, error) {
	rules := Rules{
		Source:   sc.Label,
		BaseURL:  sc.BaseURL,
		Limit:    sc.Limit,
		MinTitle: sc.MinTitle,
		MaxTitle: sc.MaxTitle,
	}

	switch sc.Kind {
	case config.KindContainers:
		return NewContainerExtractor(rules, sc.Selectors, sc.LinkSelector)
	case config.KindLinks:
		return NewLinkExtractor(rules, sc.Selectors)
	case config.KindFeed:
		return NewFeedExtractor(rules), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", sc.Kind)
	}
}
