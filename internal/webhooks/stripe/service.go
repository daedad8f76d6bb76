package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type paymentSettler interface {
	ConfirmByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID, paymentID string) (*payments.AttemptDTO, error)
	FailByGatewayOrder(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string, failure payments.Failure) (*payments.AttemptDTO, error)
}

type ServiceParams struct {
	Payments paymentSettler
	Logger   *logger.Logger
}

// Service applies PaymentIntent events to payment attempts.
type Service struct {
	payments paymentSettler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// HandleEvent settles payment_intent.succeeded and payment_intent.payment_failed.
// Other event types are acknowledged without work.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
	default:
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	var err error
	if event.Type == stripe.EventTypePaymentIntentSucceeded {
		paymentID := intent.ID
		if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
			paymentID = intent.LatestCharge.ID
		}
		_, err = s.payments.ConfirmByGatewayOrder(ctx, enums.PaymentProviderStripe, intent.ID, paymentID)
	} else {
		_, err = s.payments.FailByGatewayOrder(ctx, enums.PaymentProviderStripe, intent.ID, payments.IntentFailure(intent.LastPaymentError))
	}
	return s.settle(ctx, event, intent.ID, err)
}

// settle acknowledges events the attempt can no longer absorb; retrying them
// would never succeed.
func (s *Service) settle(ctx context.Context, event *stripe.Event, intentID string, err error) error {
	if err == nil {
		return nil
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeStateConflict, pkgerrors.CodeNotFound:
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": string(event.Type),
				"intent_id":  intentID,
			})
			s.logg.Warn(logCtx, fmt.Sprintf("stripe event ignored: %v", err))
		}
		return nil
	}
	return err
}
