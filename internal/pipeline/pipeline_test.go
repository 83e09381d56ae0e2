package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
	"github.com/etfnews/newswatch/internal/notify"
	"github.com/etfnews/newswatch/internal/source"
	"github.com/etfnews/newswatch/internal/store"
)

type fakeCollector struct {
	info  source.Info
	items []item.Item
	err   error
	calls int
}

func (f *fakeCollector) Info() source.Info { return f.info }

func (f *fakeCollector) Collect(context.Context) ([]item.Item, error) {
	f.calls++
	return f.items, f.err
}

type fakeChannel struct {
	sent []string
	err  error
}

func (f *fakeChannel) Name() string              { return "fake" }
func (f *fakeChannel) Renderer() notify.Renderer { return notify.HTMLRenderer{} }

func (f *fakeChannel) Send(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func etfSource(items ...item.Item) *fakeCollector {
	return &fakeCollector{
		info:  source.Info{Name: "etf", Label: "ETF", Icon: "🎓", Noun: "announcements", Heading: "Announcements", State: "etf_posts.json"},
		items: items,
	}
}

func dsaiSource(items ...item.Item) *fakeCollector {
	return &fakeCollector{
		info:  source.Info{Name: "dsai", Label: "DSAI", Icon: "🤖", Noun: "news items", Heading: "News", State: "dsai_posts.json"},
		items: items,
	}
}

func items(label string, urls ...string) []item.Item {
	out := make([]item.Item, len(urls))
	for i, u := range urls {
		out[i] = item.Item{Title: "Title for " + u, URL: u, Source: label}
	}
	return out
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 2, hour, 30, 0, 0, time.UTC) }
}

func newTestPipeline(t *testing.T, ch notify.Channel, hour int, sources ...Collector) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewJSONStore(t.TempDir(), store.DefaultRetention)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	p := New(sources, st, ch, nil, Options{
		SummaryHour:  12,
		TitleWidth:   80,
		SummaryWidth: 60,
		Location:     time.UTC,
		Now:          at(hour),
	})
	return p, st
}

func TestRun_FirstRunAnnouncesEverything(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource(items("ETF", "u1", "u2")...)
	dsai := dsaiSource(items("DSAI", "d1")...)
	p, st := newTestPipeline(t, ch, 9, etf, dsai)

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Notified != 2 || len(ch.sent) != 2 {
		t.Fatalf("notified = %d, sent = %d", rep.Notified, len(ch.sent))
	}
	if !strings.HasPrefix(ch.sent[0], "🎓 <b>Novo ETF obavještenje</b>") {
		t.Errorf("first message = %q", ch.sent[0])
	}
	if !strings.HasPrefix(ch.sent[1], "🤖 <b>Novo DSAI obavještenje</b>") {
		t.Errorf("second message = %q", ch.sent[1])
	}

	saved, _ := st.Load(context.Background(), "etf_posts.json")
	if len(saved) != 2 {
		t.Errorf("saved = %v", saved)
	}
}

func TestRun_Idempotent(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newTestPipeline(t, ch, 9,
		etfSource(items("ETF", "u1", "u2")...),
		dsaiSource(items("DSAI", "d1")...))

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	ch.sent = nil

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.Notified != 0 || len(ch.sent) != 0 {
		t.Errorf("second run sent %v", ch.sent)
	}
	for _, s := range rep.Sources {
		if s.New != 0 {
			t.Errorf("%s new = %d", s.Name, s.New)
		}
	}
}

func TestRun_ExampleMerge(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource(items("ETF", "u2", "u3")...)
	p, st := newTestPipeline(t, ch, 9, etf)

	ctx := context.Background()
	if err := st.Save(ctx, "etf_posts.json", items("ETF", "u1", "u2")); err != nil {
		t.Fatal(err)
	}

	rep, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Sources[0].New != 1 {
		t.Errorf("new = %d, want 1", rep.Sources[0].New)
	}
	if len(ch.sent) != 1 || !strings.Contains(ch.sent[0], "1. <a href='u3'>") {
		t.Errorf("sent = %v", ch.sent)
	}

	saved, _ := st.Load(ctx, "etf_posts.json")
	var got []string
	for _, it := range saved {
		got = append(got, it.URL)
	}
	if strings.Join(got, ",") != "u2,u3,u1" {
		t.Errorf("saved order = %v, want u2,u3,u1", got)
	}
}

func TestRun_SourceIsolation(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource()
	etf.err = failure.New(failure.Fetch, "https://www.etf.unsa.ba/obavjestenja", errors.New("timeout"))
	dsai := dsaiSource(items("DSAI", "d1")...)
	p, st := newTestPipeline(t, ch, 9, etf, dsai)

	ctx := context.Background()
	before := items("ETF", "u1")
	_ = st.Save(ctx, "etf_posts.json", before)

	rep, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Failed() {
		t.Error("report should record the failure")
	}
	if len(rep.Sources[0].Errors) != 1 || !failure.Is(rep.Sources[0].Errors[0], failure.Fetch) {
		t.Errorf("etf errors = %v", rep.Sources[0].Errors)
	}
	if rep.Sources[0].Saved {
		t.Error("failed source must not be saved")
	}
	if !rep.Sources[1].Notified || !rep.Sources[1].Saved {
		t.Errorf("dsai report = %+v", rep.Sources[1])
	}

	etfState, _ := st.Load(ctx, "etf_posts.json")
	if len(etfState) != 1 || etfState[0].URL != "u1" {
		t.Errorf("etf state changed: %v", etfState)
	}
}

func TestRun_NotifyFailureStillSaves(t *testing.T) {
	ch := &fakeChannel{err: failure.Newf(failure.Notify, "fake", "status 500")}
	p, st := newTestPipeline(t, ch, 12, etfSource(items("ETF", "u1")...))

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Notified != 0 {
		t.Errorf("notified = %d", rep.Notified)
	}
	if !rep.Sources[0].Saved {
		t.Error("state should be saved after notify failure")
	}
	saved, _ := st.Load(context.Background(), "etf_posts.json")
	if len(saved) != 1 {
		t.Errorf("saved = %v", saved)
	}
}

func TestRun_EmptyExtractionKeepsState(t *testing.T) {
	ch := &fakeChannel{}
	p, st := newTestPipeline(t, ch, 9, etfSource())

	ctx := context.Background()
	_ = st.Save(ctx, "etf_posts.json", items("ETF", "u1", "u2"))
	before, _ := st.UpdatedAt(ctx, "etf_posts.json")

	rep, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Sources[0].Saved {
		t.Error("empty extraction should not save")
	}
	after, _ := st.UpdatedAt(ctx, "etf_posts.json")
	if !after.Equal(before) {
		t.Error("state file rewritten")
	}
}

func TestRun_RetentionAfterMerge(t *testing.T) {
	ch := &fakeChannel{}
	var current []string
	for i := 0; i < 7; i++ {
		current = append(current, fmt.Sprintf("new%d", i))
	}
	var old []string
	for i := 0; i < 15; i++ {
		old = append(old, fmt.Sprintf("old%d", i))
	}
	p, st := newTestPipeline(t, ch, 9, etfSource(items("ETF", current...)...))

	ctx := context.Background()
	_ = st.Save(ctx, "etf_posts.json", items("ETF", old...))

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	saved, _ := st.Load(ctx, "etf_posts.json")
	if len(saved) != 10 {
		t.Fatalf("saved = %d, want 10", len(saved))
	}
	if saved[0].URL != "new0" || saved[7].URL != "old0" {
		t.Errorf("order = %v ... %v", saved[0].URL, saved[7].URL)
	}
}

func TestRun_DailySummary(t *testing.T) {
	tests := []struct {
		name     string
		hour     int
		fresh    bool
		wantSent bool
	}{
		{"noon quiet", 12, false, true},
		{"noon with news", 12, true, false},
		{"morning quiet", 11, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{}
			etf := etfSource(items("ETF", "u1", "u2")...)
			dsai := dsaiSource(items("DSAI", "d1")...)
			p, st := newTestPipeline(t, ch, tt.hour, etf, dsai)

			ctx := context.Background()
			if !tt.fresh {
				_ = st.Save(ctx, "etf_posts.json", etf.items)
				_ = st.Save(ctx, "dsai_posts.json", dsai.items)
			}

			rep, err := p.Run(ctx)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if rep.SummarySent != tt.wantSent {
				t.Errorf("summary sent = %v, want %v", rep.SummarySent, tt.wantSent)
			}
			if !tt.wantSent {
				return
			}
			if len(ch.sent) != 1 {
				t.Fatalf("sent %d messages, want 1", len(ch.sent))
			}
			for _, want := range []string{
				"📊 <b>Daily Summary</b>",
				"🎓 ETF: 2 announcements tracked",
				"🤖 DSAI: 1 news items tracked",
			} {
				if !strings.Contains(ch.sent[0], want) {
					t.Errorf("summary missing %q:\n%s", want, ch.sent[0])
				}
			}
		})
	}
}

func TestRun_SummaryDisabled(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newTestPipeline(t, ch, 12, etfSource())
	p.opts.SummaryHour = -1

	rep, _ := p.Run(context.Background())
	if rep.SummarySent || len(ch.sent) != 0 {
		t.Errorf("summary sent while disabled: %v", ch.sent)
	}
}

func TestRun_Snapshot(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource(items("ETF", "u1")...)
	dsai := dsaiSource()
	p, st := newTestPipeline(t, ch, 9, etf, dsai)
	p.opts.Snapshot = OnDates("2026-03-02")

	ctx := context.Background()
	_ = st.Save(ctx, "etf_posts.json", etf.items)

	rep, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.SnapshotSent || len(ch.sent) != 1 {
		t.Fatalf("snapshot sent = %v, messages = %v", rep.SnapshotSent, ch.sent)
	}
	if !strings.HasPrefix(ch.sent[0], "🧪 <b>Test Summary - March 2, 2026</b>") {
		t.Errorf("snapshot = %q", ch.sent[0])
	}
	if strings.Contains(ch.sent[0], "DSAI") {
		t.Error("empty source listed in snapshot")
	}
	if etf.calls != 1 {
		t.Errorf("source collected %d times, want 1", etf.calls)
	}
}

func TestRun_SnapshotOtherDay(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newTestPipeline(t, ch, 9, etfSource())
	p.opts.Snapshot = OnDates("2025-09-24")

	rep, _ := p.Run(context.Background())
	if rep.SnapshotSent {
		t.Error("snapshot sent on wrong date")
	}
}

func TestRun_SnapshotNothingCollected(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newTestPipeline(t, ch, 9, etfSource(), dsaiSource())
	p.opts.Snapshot = Always

	rep, _ := p.Run(context.Background())
	if rep.SnapshotSent || len(ch.sent) != 0 {
		t.Errorf("snapshot sent with no items: %v", ch.sent)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource(items("ETF", "u1")...)
	p, _ := newTestPipeline(t, ch, 9, etf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if etf.calls != 0 || len(ch.sent) != 0 {
		t.Error("work done after cancellation")
	}
}

func TestRun_FailuresByKind(t *testing.T) {
	ch := &fakeChannel{err: failure.Newf(failure.Notify, "fake", "status 500")}
	etf := etfSource()
	etf.err = failure.New(failure.Fetch, "https://www.etf.unsa.ba/obavjestenja", errors.New("timeout"))
	dsai := dsaiSource(items("DSAI", "d1")...)
	p, _ := newTestPipeline(t, ch, 9, etf, dsai)

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := rep.Sources[0].Kinds(); got[failure.Fetch] != 1 || len(got) != 1 {
		t.Errorf("etf kinds = %v", got)
	}
	got := rep.Failures()
	want := map[failure.Kind]int{failure.Fetch: 1, failure.Notify: 1}
	if len(got) != len(want) {
		t.Fatalf("failures = %v, want %v", got, want)
	}
	for kind, n := range want {
		if got[kind] != n {
			t.Errorf("failures[%s] = %d, want %d", kind, got[kind], n)
		}
	}
}

func TestRun_ConfigFailureAborts(t *testing.T) {
	ch := &fakeChannel{}
	etf := etfSource()
	etf.err = failure.Newf(failure.Config, "etf", "bad selector %q", "div[")
	dsai := dsaiSource(items("DSAI", "d1")...)
	p, st := newTestPipeline(t, ch, 12, etf, dsai)

	_, err := p.Run(context.Background())
	if !failure.IsFatal(err) {
		t.Fatalf("err = %v, want config failure", err)
	}
	if dsai.calls != 0 {
		t.Errorf("dsai collected %d times after a fatal failure", dsai.calls)
	}
	if len(ch.sent) != 0 {
		t.Errorf("sent %d messages after a fatal failure", len(ch.sent))
	}
	if saved, _ := st.Load(context.Background(), "dsai_posts.json"); len(saved) != 0 {
		t.Errorf("dsai state written: %v", saved)
	}
}
