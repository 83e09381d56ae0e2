package source

import (
	"testing"

	"github.com/etfnews/newswatch/internal/failure"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Faculty news</title>
  <item><title>Upis u &lt;b&gt;drugi&lt;/b&gt; ciklus</title><link>https://news.example/upis</link></item>
  <item><title>Kratk</title><link>https://news.example/short</link></item>
  <item><title>Relative link entry</title><link>/news/relative</link></item>
  <item><title>Beyond the cap</title><link>https://news.example/late</link></item>
</channel>
</rss>`

func feedRules() Rules {
	return Rules{Source: "NEWS", BaseURL: "https://news.example", Limit: 3, MinTitle: 5, MaxTitle: 150}
}

func TestFeedExtract(t *testing.T) {
	items, err := NewFeedExtractor(feedRules()).Extract(rssDoc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %v, want 2", items)
	}
	if items[0].Title != "Upis u drugi ciklus" {
		t.Errorf("title = %q", items[0].Title)
	}
	if items[1].URL != "https://news.example/news/relative" {
		t.Errorf("url = %q", items[1].URL)
	}
	if items[1].Source != "NEWS" {
		t.Errorf("source = %q", items[1].Source)
	}
}

func TestFeedExtract_Blank(t *testing.T) {
	items, err := NewFeedExtractor(feedRules()).Extract("   ")
	if err != nil || items != nil {
		t.Fatalf("got %v, %v", items, err)
	}
}

func TestFeedExtract_NotAFeed(t *testing.T) {
	_, err := NewFeedExtractor(feedRules()).Extract("plain text, no markup")
	if !failure.Is(err, failure.Parse) {
		t.Fatalf("err = %v, want parse failure", err)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple tags", "<p>hello</p>", "hello"},
		{"entities", "&amp; &lt; &gt;", "& < >"},
		{"collapses whitespace", "a \n\t b", "a b"},
		{"empty", "", ""},
		{"self-closing", "line<br/>break", "line break"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
