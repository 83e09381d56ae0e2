package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/etfnews/newswatch/internal/config"
	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
)

// RedisStore keeps each list as a JSON document under prefix+name, for
// runners whose filesystem does not survive between runs.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention Retention
	now       func() time.Time
}

// redisState is the value stored per key.
type redisState struct {
	Items     []item.Item `json:"items"`
	UpdatedAt string      `json:"updated_at"`
}

// NewRedisStore connects to cfg.Addr and checks the connection.
func NewRedisStore(cfg config.RedisConfig, retention Retention) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, failure.New(failure.Store, cfg.Addr, fmt.Errorf("redis ping: %w", err))
	}

	return newRedisStore(client, cfg.KeyPrefix, retention), nil
}

func newRedisStore(client *redis.Client, prefix string, retention Retention) *RedisStore {
	if prefix == "" {
		prefix = config.DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, retention: retention, now: time.Now}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) get(ctx context.Context, name string) (*redisState, error) {
	bs, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.New(failure.Store, s.key(name), fmt.Errorf("redis get: %w", err))
	}
	var st redisState
	if err := json.Unmarshal(bs, &st); err != nil {
		return nil, failure.New(failure.Store, s.key(name), fmt.Errorf("decode state: %w", err))
	}
	return &st, nil
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]item.Item, error) {
	st, err := s.get(ctx, name)
	if err != nil || st == nil {
		return nil, err
	}
	return st.Items, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, items []item.Item) error {
	st := redisState{
		Items:     s.retention.apply(items),
		UpdatedAt: formatTime(s.now()),
	}
	if st.Items == nil {
		st.Items = []item.Item{}
	}
	bs, err := marshalIndent(st)
	if err != nil {
		return failure.New(failure.Store, s.key(name), fmt.Errorf("encode state: %w", err))
	}
	if err := s.client.Set(ctx, s.key(name), bs, 0).Err(); err != nil {
		return failure.New(failure.Store, s.key(name), fmt.Errorf("redis set: %w", err))
	}
	return nil
}

func (s *RedisStore) UpdatedAt(ctx context.Context, name string) (time.Time, error) {
	st, err := s.get(ctx, name)
	if err != nil || st == nil {
		return time.Time{}, err
	}
	ts, err := parseTime(st.UpdatedAt)
	if err != nil {
		return time.Time{}, failure.New(failure.Store, s.key(name), fmt.Errorf("parse updated_at: %w", err))
	}
	return ts, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
