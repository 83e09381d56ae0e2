// Package notify builds announcement messages and delivers them to chat
// channels.
package notify

import (
	"fmt"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/etfnews/newswatch/internal/item"
)

const (
	timestampLayout = "02/01/2006 15:04"
	snapshotLayout  = "January 2, 2006"
	ellipsis        = "..."
)

// Source is how a monitored page is named in messages.
type Source struct {
	Label   string // e.g. "ETF"
	Icon    string // e.g. "🎓"
	Noun    string // e.g. "announcements"
	Heading string // e.g. "Announcements"
}

// Block is one visual element of a message. Renderers switch on the
// concrete type.
type Block interface {
	block()
}

// Heading is an icon followed by bold text.
type Heading struct {
	Icon string
	Text string
}

// Entries is a numbered list of links, starting at 1.
type Entries struct {
	Items []Entry
}

// Entry is one list line. Title is already elided.
type Entry struct {
	Title string
	URL   string
}

// Text is a plain line.
type Text struct {
	Text string
}

// Note is an icon followed by italic text.
type Note struct {
	Icon string
	Text string
}

// Blank is an empty line.
type Blank struct{}

func (Heading) block() {}
func (Entries) block() {}
func (Text) block()    {}
func (Note) block()    {}
func (Blank) block()   {}

// Kind tells what a message is for; it only affects logging.
type Kind string

const (
	KindNewItems Kind = "new_items"
	KindSnapshot Kind = "snapshot"
	KindSummary  Kind = "daily_summary"
	KindPing     Kind = "ping"
)

// Message is a renderer-neutral notification.
type Message struct {
	Kind   Kind
	Blocks []Block
}

// IsEmpty reports whether there is nothing to send.
func (m Message) IsEmpty() bool {
	return len(m.Blocks) == 0
}

// NewItems announces items that were not known before. An empty list
// yields an empty message. The heading starts with the source icon; a
// source configured with its label as icon gets "ETF <b>Novo ETF ...".
func NewItems(src Source, items []item.Item, width int, now time.Time) Message {
	if len(items) == 0 {
		return Message{Kind: KindNewItems}
	}
	return Message{
		Kind: KindNewItems,
		Blocks: []Block{
			Heading{Icon: src.Icon, Text: fmt.Sprintf("Novo %s obavještenje", src.Label)},
			Blank{},
			entries(items, width),
			Blank{},
			Note{Icon: "🕐", Text: "Vrijeme provjere: " + now.Format(timestampLayout)},
		},
	}
}

// SnapshotSection is one source's current items.
type SnapshotSection struct {
	Source Source
	Items  []item.Item
}

// Snapshot lists what each source currently shows, regardless of what is
// already known. Sections without items are left out; if every section is
// empty the message is empty.
func Snapshot(sections []SnapshotSection, width int, now time.Time) Message {
	blocks := []Block{
		Heading{Icon: "🧪", Text: "Test Summary - " + now.Format(snapshotLayout)},
		Blank{},
	}

	found := false
	for _, sec := range sections {
		if len(sec.Items) == 0 {
			continue
		}
		found = true
		blocks = append(blocks,
			Heading{
				Icon: sec.Source.Icon,
				Text: fmt.Sprintf("Current %s %s (%d):", sec.Source.Label, sec.Source.Heading, len(sec.Items)),
			},
			entries(sec.Items, width),
			Blank{},
		)
	}
	if !found {
		return Message{Kind: KindSnapshot}
	}

	blocks = append(blocks,
		Note{Icon: "✅", Text: "Scraper is working correctly!"},
		Note{Icon: "🕐", Text: "Checked: " + now.Format(timestampLayout)},
	)
	return Message{Kind: KindSnapshot, Blocks: blocks}
}

// Count is how many items a source yielded this run.
type Count struct {
	Source Source
	N      int
}

// DailySummary reports per-source counts when nothing new was found.
func DailySummary(counts []Count, now time.Time) Message {
	blocks := []Block{
		Heading{Icon: "📊", Text: "Daily Summary"},
		Blank{},
	}
	for _, c := range counts {
		blocks = append(blocks, Text{
			Text: fmt.Sprintf("%s %s: %d %s tracked", c.Source.Icon, c.Source.Label, c.N, c.Source.Noun),
		})
	}
	blocks = append(blocks,
		Blank{},
		Text{Text: "🔍 No new posts since last check"},
		Note{Icon: "🕐", Text: now.Format(timestampLayout)},
	)
	return Message{Kind: KindSummary, Blocks: blocks}
}

// Ping is a connectivity test message.
func Ping(schedule string, now time.Time) Message {
	blocks := []Block{
		Heading{Icon: "🎓", Text: "College News Bot is working!"},
		Blank{},
		Text{Text: "📢 This is a test message from your automated news scraper."},
		Blank{},
		Note{Icon: "✅", Text: "Bot Status: Active"},
	}
	if schedule != "" {
		blocks = append(blocks, Text{Text: "🔁 Check schedule: " + schedule})
	}
	blocks = append(blocks, Note{Icon: "🕐", Text: now.Format(timestampLayout)})
	return Message{Kind: KindPing, Blocks: blocks}
}

func entries(items []item.Item, width int) Entries {
	out := make([]Entry, len(items))
	for i, it := range items {
		out[i] = Entry{Title: Elide(it.Title, width), URL: it.URL}
	}
	return Entries{Items: out}
}

// Elide cuts s to the given display width and appends "..." when it is
// wider. A non-positive width disables eliding.
func Elide(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "") + ellipsis
}
