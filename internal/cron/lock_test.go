package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLeaseStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemLeaseStore() *memLeaseStore {
	return &memLeaseStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memLeaseStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memLeaseStore) CompareAndExpire(_ context.Context, key, expected string, ttl time.Duration) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	m.ttls[key] = ttl
	return true, nil
}

func (m *memLeaseStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemLeaseStore()
	first, err := NewRedisLock(store, "sf:lock:cron-worker", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "sf:lock:cron-worker", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// releasing a lease never held is a no-op
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "sf:lock:cron-worker")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExtendRenewsOwnLease(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "cron-7")
	ctx := context.Background()
	store := newMemLeaseStore()
	lock, err := NewRedisLock(store, "sf:lock:cron-worker", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.TTL())

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Regexp(t, `^cron-7/[0-9a-f-]{36}$`, store.values["sf:lock:cron-worker"])
	assert.Equal(t, store.values["sf:lock:cron-worker"], lock.Holder())

	store.ttls["sf:lock:cron-worker"] = time.Second
	ok, err = lock.Extend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["sf:lock:cron-worker"])
}

func TestRedisLockLostLeaseIsLeftToNewOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemLeaseStore()
	lock, err := NewRedisLock(store, "sf:lock:cron-worker", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the lease lapsed and another worker took it
	store.values["sf:lock:cron-worker"] = "cron-8/other"

	ok, err = lock.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, lock.Holder())

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "cron-8/other", store.values["sf:lock:cron-worker"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemLeaseStore(), "", time.Minute)
	assert.Error(t, err)
}
