package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/farm-selector/internal/cache/keys"
)

// MemoryStore is a bounded in-process Store; entries expire after the TTL given at construction.
type MemoryStore struct {
	lru *expirable.LRU[string, Handoff]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 4096
	}
	return &MemoryStore{lru: expirable.NewLRU[string, Handoff](size, nil, ttl)}
}

// Put ignores the per-call ttl in favour of the store-wide one.
func (s *MemoryStore) Put(_ context.Context, token string, h Handoff, _ time.Duration) error {
	s.lru.Add(token, h)
	return nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (Handoff, error) {
	h, ok := s.lru.Peek(token)
	if !ok || !s.lru.Remove(token) {
		return Handoff{}, ErrNotFound
	}
	return h, nil
}

func (s *MemoryStore) Discard(_ context.Context, token string) error {
	s.lru.Remove(token)
	return nil
}

type kv interface {
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	GetDel(ctx context.Context, key string) ([]byte, bool, error)
	Del(ctx context.Context, key ...string) error
	Ping(ctx context.Context) error
}

// RedisStore keeps handoffs in Redis so any replica can resolve them.
type RedisStore struct {
	kv kv
}

func NewRedisStore(c kv) *RedisStore { return &RedisStore{kv: c} }

func (s *RedisStore) Put(ctx context.Context, token string, h Handoff, ttl time.Duration) error {
	b, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode handoff: %w", err)
	}
	return s.kv.Set(ctx, keys.Handoff(token), b, ttl)
}

func (s *RedisStore) Take(ctx context.Context, token string) (Handoff, error) {
	b, found, err := s.kv.GetDel(ctx, keys.Handoff(token))
	if err != nil {
		return Handoff{}, err
	}
	if !found {
		return Handoff{}, ErrNotFound
	}
	var h Handoff
	if err := json.Unmarshal(b, &h); err != nil {
		return Handoff{}, fmt.Errorf("decode handoff: %w", err)
	}
	return h, nil
}

func (s *RedisStore) Discard(ctx context.Context, token string) error {
	return s.kv.Del(ctx, keys.Handoff(token))
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }
