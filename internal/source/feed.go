package source

import (
	"html"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FeedExtractor reads RSS/Atom/JSON feeds; entries are taken in feed order.
type FeedExtractor struct {
	rules  Rules
	parser *gofeed.Parser
}

// NewFeedExtractor creates a feed extractor.
func NewFeedExtractor(rules Rules) *FeedExtractor {
	return &FeedExtractor{rules: rules, parser: gofeed.NewParser()}
}

// Extract parses the feed document. Blank input yields no items.
func (e *FeedExtractor) Extract(markup string) ([]item.Item, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}

	feed, err := e.parser.ParseString(markup)
	if err != nil {
		return nil, failure.New(failure.Parse, e.rules.Source, err)
	}

	entries := feed.Items
	if e.rules.Limit > 0 && len(entries) > e.rules.Limit {
		entries = entries[:e.rules.Limit]
	}

	var items []item.Item
	for _, entry := range entries {
		if it, ok := e.rules.build(entryTitle(entry), entryLink(entry)); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if len(entry.Links) > 0 {
		return entry.Links[0]
	}
	return ""
}

func entryTitle(entry *gofeed.Item) string {
	return stripHTML(entry.Title)
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
