package stripewebhook

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
)

// Consumer is the idempotency scope of Stripe webhook deliveries.
const Consumer = "stripe-webhook"

// IdempotencyGuard remembers processed Stripe event ids.
type IdempotencyGuard struct {
	manager  *idempotency.Manager
	consumer string
}

func NewIdempotencyGuard(manager *idempotency.Manager, consumer string) (*IdempotencyGuard, error) {
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if consumer == "" {
		consumer = Consumer
	}
	return &IdempotencyGuard{manager: manager, consumer: consumer}, nil
}

// CheckAndMark reports whether eventID was already handled and marks it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return g.manager.CheckAndMark(ctx, g.consumer, eventID)
}

// Delete releases the marker so Stripe's retry is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.manager.Delete(ctx, g.consumer, eventID)
}
