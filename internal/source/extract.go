package source

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
)

// Rules are the per-source bounds every extractor applies.
type Rules struct {
	Source   string // label stamped on each item
	BaseURL  string // scheme+host used to absolutize relative links
	Limit    int    // candidates considered, counted before filtering
	MinTitle int    // titles must be strictly longer than this (runes)
	MaxTitle int    // titles are truncated to this many runes
}

// build turns a raw title and href into an item, or reports false if the
// candidate is rejected.
func (r Rules) build(title, href string) (item.Item, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return item.Item{}, false
	}
	if utf8.RuneCountInString(title) <= r.MinTitle {
		return item.Item{}, false
	}
	if r.MaxTitle > 0 {
		title = item.TruncateRunes(title, r.MaxTitle)
	}
	return item.Item{
		Title:  title,
		URL:    resolveURL(r.BaseURL, href),
		Source: r.Source,
	}, true
}

// capped keeps at most limit candidates.
func (r Rules) capped(sel *goquery.Selection) *goquery.Selection {
	if r.Limit > 0 && sel.Length() > r.Limit {
		return sel.Slice(0, r.Limit)
	}
	return sel
}

// ContainerExtractor reads pages where each announcement sits in a block
// element holding a link. Selector strategies are tried in order and the
// first one that matches anything wins, even if its matches later fail
// validation.
type ContainerExtractor struct {
	rules      Rules
	strategies []cascadia.Selector
	link       cascadia.Selector
}

// NewContainerExtractor compiles the strategies and the link selector.
func NewContainerExtractor(rules Rules, strategies []string, linkSelector string) (*ContainerExtractor, error) {
	compiled, err := compileAll(strategies)
	if err != nil {
		return nil, err
	}
	link, err := cascadia.Compile(linkSelector)
	if err != nil {
		return nil, failure.New(failure.Config, "link selector", err)
	}
	return &ContainerExtractor{rules: rules, strategies: compiled, link: link}, nil
}

// Extract returns items in page order.
func (e *ContainerExtractor) Extract(markup string) ([]item.Item, error) {
	doc, err := parseDocument(e.rules.Source, markup)
	if err != nil {
		return nil, err
	}

	containers := e.rules.capped(firstMatch(doc, e.strategies))

	var items []item.Item
	containers.Each(func(_ int, container *goquery.Selection) {
		link := container.FindMatcher(e.link).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if it, ok := e.rules.build(strippedText(link), href); ok {
			items = append(items, it)
		}
	})
	return items, nil
}

// LinkExtractor reads pages where the matched elements are the links.
type LinkExtractor struct {
	rules      Rules
	strategies []cascadia.Selector
}

// NewLinkExtractor compiles the link strategies.
func NewLinkExtractor(rules Rules, strategies []string) (*LinkExtractor, error) {
	compiled, err := compileAll(strategies)
	if err != nil {
		return nil, err
	}
	return &LinkExtractor{rules: rules, strategies: compiled}, nil
}

// Extract returns items in page order.
func (e *LinkExtractor) Extract(markup string) ([]item.Item, error) {
	doc, err := parseDocument(e.rules.Source, markup)
	if err != nil {
		return nil, err
	}

	links := e.rules.capped(firstMatch(doc, e.strategies))

	var items []item.Item
	links.Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if it, ok := e.rules.build(strippedText(link), href); ok {
			items = append(items, it)
		}
	})
	return items, nil
}

func compileAll(selectors []string) ([]cascadia.Selector, error) {
	compiled := make([]cascadia.Selector, 0, len(selectors))
	for _, s := range selectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, failure.New(failure.Config, "selector "+s, err)
		}
		compiled = append(compiled, sel)
	}
	return compiled, nil
}

func parseDocument(source, markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, failure.New(failure.Parse, source, err)
	}
	return doc, nil
}

// firstMatch returns the matches of the first strategy that finds any
// element, in document order.
func firstMatch(doc *goquery.Document, strategies []cascadia.Selector) *goquery.Selection {
	for _, s := range strategies {
		if sel := doc.FindMatcher(s); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection.Slice(0, 0)
}

// strippedText joins the element's text nodes, each trimmed, with no
// separator, skipping nodes that are blank after trimming.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(strings.TrimSpace(c.Text()))
			return
		}
		b.WriteString(strippedText(c))
	})
	return b.String()
}

// resolveURL keeps absolute http(s) hrefs and resolves everything else
// against base.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return base + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base + href
	}
	return b.ResolveReference(ref).String()
}
