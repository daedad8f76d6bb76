package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	CartKey(token string) string
}

// RedisStore keeps guest carts as JSON under a sliding TTL.
type RedisStore struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisStore binds the guest cart store to a redis client.
func NewRedisStore(client redisKV, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest cart ttl must be positive")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load returns the guest cart, or nothing when it expired or never existed.
func (s *RedisStore) Load(ctx context.Context, owner Owner) ([]Item, error) {
	if owner.GuestToken == "" {
		return nil, fmt.Errorf("guest token required")
	}
	key := s.client.CartKey(owner.GuestToken)
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read guest cart: %w", err)
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode guest cart: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl); err != nil {
		return nil, fmt.Errorf("refresh guest cart ttl: %w", err)
	}
	return items, nil
}

// Save overwrites the guest cart and restarts its TTL. An empty cart deletes the key.
func (s *RedisStore) Save(ctx context.Context, owner Owner, items []Item) error {
	if owner.GuestToken == "" {
		return fmt.Errorf("guest token required")
	}
	if len(items) == 0 {
		return s.Delete(ctx, owner)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartKey(owner.GuestToken), string(payload), s.ttl); err != nil {
		return fmt.Errorf("write guest cart: %w", err)
	}
	return nil
}

// Delete drops the guest cart.
func (s *RedisStore) Delete(ctx context.Context, owner Owner) error {
	if owner.GuestToken == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.client.CartKey(owner.GuestToken)); err != nil {
		return fmt.Errorf("delete guest cart: %w", err)
	}
	return nil
}
