package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
)

// JSONStore keeps one JSON array file per source inside dir.
type JSONStore struct {
	dir       string
	retention Retention
}

// NewJSONStore creates dir if needed and returns a store rooted there.
func NewJSONStore(dir string, retention Retention) (*JSONStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, failure.New(failure.Store, dir, fmt.Errorf("create state dir: %w", err))
	}
	return &JSONStore{dir: dir, retention: retention}, nil
}

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *JSONStore) Load(_ context.Context, name string) ([]item.Item, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.New(failure.Store, path, fmt.Errorf("read state: %w", err))
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, failure.New(failure.Store, path, fmt.Errorf("decode state: %w", err))
	}
	return items, nil
}

// Save writes the list through a temp file and rename so an interrupted
// write never leaves a truncated state file behind.
func (s *JSONStore) Save(_ context.Context, name string, items []item.Item) error {
	path := s.path(name)
	data, err := encodeItems(s.retention.apply(items))
	if err != nil {
		return failure.New(failure.Store, path, fmt.Errorf("encode state: %w", err))
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return failure.New(failure.Store, path, fmt.Errorf("create temp: %w", err))
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return failure.New(failure.Store, path, fmt.Errorf("write state: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return failure.New(failure.Store, path, fmt.Errorf("close state: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return failure.New(failure.Store, path, fmt.Errorf("chmod state: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return failure.New(failure.Store, path, fmt.Errorf("replace state: %w", err))
	}
	return nil
}

// UpdatedAt returns the state file's modification time.
func (s *JSONStore) UpdatedAt(_ context.Context, name string) (time.Time, error) {
	info, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, failure.New(failure.Store, s.path(name), err)
	}
	return info.ModTime(), nil
}

func (s *JSONStore) Close() error {
	return nil
}
