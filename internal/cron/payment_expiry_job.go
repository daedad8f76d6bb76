package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultPaymentTTL       = 30 * time.Minute
	defaultPaymentBatchSize = 200
)

// PaymentExpiryJobParams configure the unpaid order sweep.
type PaymentExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    unpaidOrderExpirer
	TTL       time.Duration
	BatchSize int
}

type unpaidOrderExpirer interface {
	ExpireUnpaid(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// NewPaymentExpiryJob cancels online orders whose payment never completed
// within the TTL.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPaymentTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPaymentBatchSize
	}
	return &paymentExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg   *logger.Logger
	orders unpaidOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *paymentExpiryJob) Name() string { return JobPaymentExpiry }

func (j *paymentExpiryJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.orders.ExpireUnpaid(ctx, cutoff, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"ttl":            j.ttl.String(),
		"orders_expired": expired,
	})
	if err != nil {
		// partial progress is still committed per order
		j.logg.Error(logCtx, "payment expiry sweep incomplete", err)
		return expired, fmt.Errorf("payment expiry: %w", err)
	}
	if expired > 0 {
		j.logg.Info(logCtx, "expired unpaid orders")
	}
	return expired, nil
}
