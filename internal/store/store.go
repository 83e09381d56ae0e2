// Package store persists the known-item set of each source between runs.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/item"
)

// Store loads and saves the ordered item list for a named source. The name
// is the source's state key (e.g. "etf_posts.json").
type Store interface {
	// Load returns the stored list, or an empty list if nothing has been
	// saved yet. Unreadable state is a failure.Store error.
	Load(ctx context.Context, name string) ([]item.Item, error)
	// Save replaces the stored list, applying the retention policy first.
	Save(ctx context.Context, name string, items []item.Item) error
	// UpdatedAt reports when name was last saved; zero if never.
	UpdatedAt(ctx context.Context, name string) (time.Time, error)
	Close() error
}

// Retention bounds the persisted list: once it holds more than Max items
// it is cut down to the first Keep.
type Retention struct {
	Max  int
	Keep int
}

// DefaultRetention is the policy used when none is configured.
var DefaultRetention = Retention{Max: item.DefaultMaxItems, Keep: item.DefaultKeepItems}

func (r Retention) apply(items []item.Item) []item.Item {
	if r.Max <= 0 {
		r = DefaultRetention
	}
	return item.Retain(items, r.Max, r.Keep)
}

// Open creates the store selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Store, error) {
	ret := Retention{Max: cfg.MaxItems, Keep: cfg.KeepItems}

	switch cfg.Driver {
	case "", config.DriverJSON:
		return NewJSONStore(cfg.Dir, ret)
	case config.DriverSQLite:
		path := cfg.Path
		if !filepath.IsAbs(path) && cfg.Dir != "" {
			path = filepath.Join(cfg.Dir, path)
		}
		return OpenSQLite(path, ret)
	case config.DriverRedis:
		return NewRedisStore(cfg.Redis, ret)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// encodeItems renders items as indented JSON with non-ASCII and markup
// characters kept literal.
func encodeItems(items []item.Item) ([]byte, error) {
	if items == nil {
		items = []item.Item{}
	}
	return marshalIndent(items)
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func decodeItems(data []byte) ([]item.Item, error) {
	var items []item.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
