package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type stripeIntentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// StripeIntentClient calls the PaymentIntents API with the globally
// configured key (see pkg/stripe.NewClient).
type StripeIntentClient struct{}

func (StripeIntentClient) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (StripeIntentClient) Get(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

// StripeGateway collects payments with PaymentIntents. The intent id is the
// gateway order id.
type StripeGateway struct {
	api            stripeIntentAPI
	publishableKey string
	scriptURL      string
}

// NewStripeGateway builds the gateway around an intent client.
func NewStripeGateway(api stripeIntentAPI, publishableKey, scriptURL string) (*StripeGateway, error) {
	if api == nil {
		return nil, errors.New("stripe intent client required")
	}
	return &StripeGateway{
		api:            api,
		publishableKey: strings.TrimSpace(publishableKey),
		scriptURL:      strings.TrimSpace(scriptURL),
	}, nil
}

func (g *StripeGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (g *StripeGateway) Checkout() CheckoutConfig {
	return CheckoutConfig{ScriptURL: g.scriptURL, PublicKey: g.publishableKey}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyINR)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if req.Receipt != "" {
		params.Description = stripe.String(req.Receipt)
	}
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.Create(ctx, params)
	if err != nil {
		return nil, stripeFailure(err, StepCreateOrder)
	}
	return &GatewayOrder{
		ID:           intent.ID,
		AmountMinor:  intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyPayment fetches the intent; it must have succeeded and the payment
// id must be the intent itself or its latest charge.
func (g *StripeGateway) VerifyPayment(ctx context.Context, v Verification) (*VerifiedPayment, error) {
	intent, err := g.api.Get(ctx, v.GatewayOrderID)
	if err != nil {
		return nil, stripeFailure(err, StepVerification)
	}
	if intent.ID != v.GatewayOrderID {
		return nil, verificationMismatch("payment intent id mismatch")
	}
	paymentID := strings.TrimSpace(v.PaymentID)
	if paymentID != intent.ID && (intent.LatestCharge == nil || intent.LatestCharge.ID != paymentID) {
		return nil, verificationMismatch("payment id does not belong to intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		failure := Failure{
			Code:        CodeVerificationFailed,
			Description: fmt.Sprintf("payment intent is %s", intent.Status),
			Source:      SourceGateway,
			Step:        StepVerification,
			Reason:      "intent_not_succeeded",
		}
		if intent.LastPaymentError != nil {
			failure = IntentFailure(intent.LastPaymentError)
		}
		return nil, &GatewayError{Failure: failure}
	}
	return &VerifiedPayment{GatewayOrderID: intent.ID, PaymentID: paymentID}, nil
}

// IntentFailure normalizes a PaymentIntent's last_payment_error.
func IntentFailure(e *stripe.Error) Failure {
	if e == nil {
		return Failure{}.Normalize(StepAuthorization)
	}
	code := string(e.Code)
	if code == "" {
		code = string(e.Type)
	}
	return Failure{
		Code:        code,
		Description: e.Msg,
		Source:      SourceCustomer,
		Step:        StepAuthorization,
		Reason:      string(e.DeclineCode),
	}.Normalize(StepAuthorization)
}

func stripeFailure(err error, step string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		failure := IntentFailure(stripeErr)
		failure.Source = SourceGateway
		failure.Step = step
		return &GatewayError{Failure: failure, Err: err}
	}
	return &GatewayError{
		Failure: Failure{Source: SourceGateway, Reason: "gateway_unreachable", Description: "payment gateway unavailable"}.Normalize(step),
		Err:     err,
	}
}

func verificationMismatch(description string) error {
	return &GatewayError{Failure: Failure{
		Code:        CodeVerificationFailed,
		Description: description,
		Source:      SourceInternal,
		Step:        StepVerification,
		Reason:      "id_mismatch",
	}}
}
