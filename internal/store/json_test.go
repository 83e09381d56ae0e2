package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/etfnews/newswatch/internal/failure"
)

func TestJSONStore_Contract(t *testing.T) {
	st, err := NewJSONStore(t.TempDir(), DefaultRetention)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	exerciseStore(t, st)
}

func TestJSONStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	st, err := NewJSONStore(dir, DefaultRetention)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}

	if err := st.Save(context.Background(), "etf_posts.json", makeItems(2)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "etf_posts.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contents = %v, want only etf_posts.json", names)
	}
}

func TestJSONStore_ReadsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	legacy := `[
  {
    "title": "Upis na drugi ciklus studija",
    "url": "https://www.etf.unsa.ba/obavjestenja/upis",
    "source": "ETF"
  },
  {
    "title": "Bez izvora",
    "url": "https://www.etf.unsa.ba/obavjestenja/x"
  }
]`
	if err := os.WriteFile(filepath.Join(dir, "etf_posts.json"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	st, _ := NewJSONStore(dir, DefaultRetention)
	items, err := st.Load(context.Background(), "etf_posts.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 || items[0].Source != "ETF" || items[1].Source != "" {
		t.Errorf("items = %+v", items)
	}
}

func TestJSONStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "etf_posts.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, _ := NewJSONStore(dir, DefaultRetention)
	items, err := st.Load(context.Background(), "etf_posts.json")
	if !failure.Is(err, failure.Store) {
		t.Fatalf("err = %v, want store failure", err)
	}
	if items != nil {
		t.Errorf("items = %v", items)
	}
}

func TestJSONStore_NameStaysInDir(t *testing.T) {
	dir := t.TempDir()
	st, _ := NewJSONStore(dir, DefaultRetention)
	if err := st.Save(context.Background(), "../escape.json", makeItems(1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err != nil {
		t.Errorf("state not written inside dir: %v", err)
	}
}
