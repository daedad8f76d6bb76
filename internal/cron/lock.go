package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/instance"
)

// defaultLockTTL covers the slowest single job at the default five minute
// cadence; the lease is renewed between jobs.
const defaultLockTTL = 4 * time.Minute

// Lock is a renewable lease that keeps two cron workers from expiring the
// same orders at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	TTL() time.Duration
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock stores "<instance>/<lease id>" under key so a stuck lease can be
// traced to its worker from redis-cli.
type RedisLock struct {
	store    leaseStore
	key      string
	ttl      time.Duration
	instance string
	holder   string
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, instance: instance.GetID()}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lease := l.instance + "/" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, lease, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.holder = lease
	}
	return ok, nil
}

// Extend renews the lease for another TTL. False means the lease lapsed and
// may now belong to another worker.
func (l *RedisLock) Extend(ctx context.Context) (bool, error) {
	if l.holder == "" {
		return false, nil
	}
	ok, err := l.store.CompareAndExpire(ctx, l.key, l.holder, l.ttl)
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", l.key, err)
	}
	if !ok {
		l.holder = ""
	}
	return ok, nil
}

// Release drops the lease if this worker still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	lease := l.holder
	l.holder = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, lease); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLock) TTL() time.Duration { return l.ttl }

// Holder is the lease value written on the last successful Acquire, empty
// once released or lost.
func (l *RedisLock) Holder() string { return l.holder }
