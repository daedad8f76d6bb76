package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.StoreRefreshToken(ctx, "user-1", "sess-a", "token-value", 10*time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	token, err := client.GetRefreshToken(ctx, "user-1", "sess-a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if token != "token-value" {
		t.Fatalf("expected stored token, got %q", token)
	}

	if err := client.RevokeRefreshToken(ctx, "user-1", "sess-a"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := client.GetRefreshToken(ctx, "user-1", "sess-a"); err == nil || err != redis.Nil {
		t.Fatalf("expected redis.Nil after revoke, got %v", err)
	}
}

func TestExpireRefreshesTTL(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Expire(context.Background(), "sf:cart:tok", time.Hour); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != time.Hour {
		t.Fatalf("unexpected expire calls %+v", mock.expireCalls)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "sf:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.CounterKey("hits"); got != "sf:counter:hits" {
		t.Fatalf("unexpected counter key %s", got)
	}
	if got := client.RefreshTokenKey("user", "sess"); got != "sf:session:user:sess" {
		t.Fatalf("unexpected refresh key %s", got)
	}
	if got := client.CartKey("tok"); got != "sf:cart:tok" {
		t.Fatalf("unexpected cart key %s", got)
	}
	if got := client.LockKey("payment-expiry"); got != "sf:lock:payment-expiry" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.RefreshTokenKey("user", ""); got != "sf:session:user" {
		t.Fatalf("session-less refresh key should skip empty parts, got %s", got)
	}
}

func TestCompareAndDeleteAndExpire(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron-worker")
	mock.data[key] = "cron-1/abc"

	ok, err := client.CompareAndExpire(ctx, key, "cron-1/abc", 4*time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected owner to extend: ok=%v err=%v", ok, err)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].ttl != 4*time.Minute {
		t.Fatalf("unexpected expire calls %+v", mock.expireCalls)
	}

	ok, err = client.CompareAndDelete(ctx, key, "cron-2/def")
	if err != nil || ok {
		t.Fatalf("non-owner delete should be refused: ok=%v err=%v", ok, err)
	}
	if _, held := mock.data[key]; !held {
		t.Fatal("key removed by non-owner")
	}

	ok, err = client.CompareAndDelete(ctx, key, "cron-1/abc")
	if err != nil || !ok {
		t.Fatalf("owner delete failed: ok=%v err=%v", ok, err)
	}
	if _, held := mock.data[key]; held {
		t.Fatal("key should be gone")
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
	scripts     []string
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	m.scripts = append(m.scripts, script)
	key, expected := keys[0], fmt.Sprint(args[0])
	if v, ok := m.data[key]; !ok || v != expected {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch script {
	case compareAndDelete:
		delete(m.data, key)
	case compareAndExpire:
		ms, _ := args[1].(int64)
		m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: time.Duration(ms) * time.Millisecond})
	}
	return redis.NewCmdResult(int64(1), nil)
}
