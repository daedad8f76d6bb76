package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeExpirer struct {
	cutoff time.Time
	limit  int
	calls  int
	n      int
	err    error
}

func (f *fakeExpirer) ExpireUnpaid(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.calls++
	f.cutoff = cutoff
	f.limit = limit
	return f.n, f.err
}

func newPaymentExpiryJob(t *testing.T, orders *fakeExpirer, ttl time.Duration) *paymentExpiryJob {
	t.Helper()
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger: logger.Nop(),
		Orders: orders,
		TTL:    ttl,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	job, ok := jobIface.(*paymentExpiryJob)
	if !ok {
		t.Fatalf("expected paymentExpiryJob, got %T", jobIface)
	}
	return job
}

func TestPaymentExpiryJobUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	orders := &fakeExpirer{n: 3}
	job := newPaymentExpiryJob(t, orders, 45*time.Minute)
	job.now = func() time.Time { return now }

	expired, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired, got %d", expired)
	}
	if orders.calls != 1 {
		t.Fatalf("expected one call, got %d", orders.calls)
	}
	if want := now.Add(-45 * time.Minute); !orders.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, orders.cutoff)
	}
	if orders.limit != defaultPaymentBatchSize {
		t.Fatalf("expected limit %d, got %d", defaultPaymentBatchSize, orders.limit)
	}
}

func TestPaymentExpiryJobDefaults(t *testing.T) {
	job := newPaymentExpiryJob(t, &fakeExpirer{}, 0)
	if job.ttl != defaultPaymentTTL {
		t.Fatalf("expected default ttl, got %s", job.ttl)
	}
	if job.Name() != JobPaymentExpiry {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestPaymentExpiryJobPropagatesError(t *testing.T) {
	orders := &fakeExpirer{n: 1, err: errors.New("boom")}
	job := newPaymentExpiryJob(t, orders, time.Minute)
	expired, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if expired != 1 {
		t.Fatalf("expected partial count 1, got %d", expired)
	}
}

func TestNewPaymentExpiryJobRequiresOrders(t *testing.T) {
	if _, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without orders")
	}
}
