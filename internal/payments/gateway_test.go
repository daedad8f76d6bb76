package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

type stubRazorpay struct {
	secret  string
	lastReq razorpay.OrderRequest
	err     error
}

func (s *stubRazorpay) KeyID() string { return "rzp_test_key" }

func (s *stubRazorpay) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &razorpay.Order{ID: "order_RZP1", Amount: req.Amount, Currency: "INR", Status: "created"}, nil
}

func (s *stubRazorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return razorpay.VerifySignature(orderID+"|"+paymentID, signature, s.secret)
}

func TestRazorpayGatewayCreateOrder(t *testing.T) {
	api := &stubRazorpay{secret: "s"}
	gw, err := NewRazorpayGateway(api, "https://checkout.razorpay.com/v1/checkout.js")
	require.NoError(t, err)

	order, err := gw.CreateOrder(context.Background(), GatewayOrderRequest{AmountMinor: 59000, Currency: "INR", Receipt: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_RZP1", order.ID)
	assert.Equal(t, int64(59000), api.lastReq.Amount)
	assert.Equal(t, "ORD-1", api.lastReq.Receipt)
	assert.Equal(t, CheckoutConfig{ScriptURL: "https://checkout.razorpay.com/v1/checkout.js", PublicKey: "rzp_test_key"}, gw.Checkout())
	assert.Equal(t, enums.PaymentProviderRazorpay, gw.Provider())
}

func TestRazorpayGatewayNormalizesAPIError(t *testing.T) {
	api := &stubRazorpay{err: &razorpay.APIError{
		StatusCode:  400,
		Code:        "BAD_REQUEST_ERROR",
		Description: "amount too small",
		Source:      "business",
		Reason:      "input_validation_failed",
	}}
	gw, err := NewRazorpayGateway(api, "")
	require.NoError(t, err)

	_, err = gw.CreateOrder(context.Background(), GatewayOrderRequest{AmountMinor: 10})
	require.Error(t, err)
	failure := FailureOf(err, StepCreateOrder)
	assert.Equal(t, Failure{
		Code:        "BAD_REQUEST_ERROR",
		Description: "amount too small",
		Source:      "business",
		Step:        StepCreateOrder,
		Reason:      "input_validation_failed",
	}, failure)
}

func TestRazorpayGatewayTransportError(t *testing.T) {
	gw, err := NewRazorpayGateway(&stubRazorpay{err: errors.New("dial tcp: timeout")}, "")
	require.NoError(t, err)

	_, err = gw.CreateOrder(context.Background(), GatewayOrderRequest{AmountMinor: 100})
	failure := FailureOf(err, StepCreateOrder)
	assert.Equal(t, CodeGatewayError, failure.Code)
	assert.Equal(t, SourceGateway, failure.Source)
	assert.Equal(t, "gateway_unreachable", failure.Reason)
}

func TestRazorpayGatewayVerifySignature(t *testing.T) {
	gw, err := NewRazorpayGateway(&stubRazorpay{secret: "key-secret"}, "")
	require.NoError(t, err)
	ctx := context.Background()

	sig := razorpay.Sign("order_RZP1|pay_1", "key-secret")
	verified, err := gw.VerifyPayment(ctx, Verification{GatewayOrderID: "order_RZP1", PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", verified.PaymentID)

	_, err = gw.VerifyPayment(ctx, Verification{GatewayOrderID: "order_RZP1", PaymentID: "pay_2", Signature: sig})
	require.Error(t, err)
	failure := FailureOf(err, StepVerification)
	assert.Equal(t, CodeVerificationFailed, failure.Code)
	assert.Equal(t, "signature_mismatch", failure.Reason)
}

type stubIntents struct {
	created *stripe.PaymentIntentParams
	intent  *stripe.PaymentIntent
	err     error
}

func (s *stubIntents) Create(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.created = params
	if s.err != nil {
		return nil, s.err
	}
	return &stripe.PaymentIntent{
		ID:           "pi_123",
		Amount:       *params.Amount,
		Currency:     stripe.Currency(*params.Currency),
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: "pi_123_secret_abc",
	}, nil
}

func (s *stubIntents) Get(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.intent == nil || s.intent.ID != id {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: fmt.Sprintf("no such payment_intent: %s", id)}
	}
	return s.intent, nil
}

func TestStripeGatewayCreateOrder(t *testing.T) {
	api := &stubIntents{}
	gw, err := NewStripeGateway(api, "pk_test_1", "https://js.stripe.com/v3/")
	require.NoError(t, err)

	order, err := gw.CreateOrder(context.Background(), GatewayOrderRequest{
		AmountMinor:   59000,
		Currency:      "INR",
		Receipt:       "ORD-1",
		CustomerEmail: "asha@example.com",
		Notes:         map[string]string{"order_id": "o1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", order.ID)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "pi_123_secret_abc", order.ClientSecret)
	assert.Equal(t, "inr", *api.created.Currency)
	assert.Equal(t, "asha@example.com", *api.created.ReceiptEmail)
	assert.Equal(t, "o1", api.created.Metadata["order_id"])
	assert.Equal(t, "pk_test_1", gw.Checkout().PublicKey)
}

func TestStripeGatewayVerify(t *testing.T) {
	api := &stubIntents{intent: &stripe.PaymentIntent{
		ID:           "pi_123",
		Status:       stripe.PaymentIntentStatusSucceeded,
		LatestCharge: &stripe.Charge{ID: "ch_1"},
	}}
	gw, err := NewStripeGateway(api, "", "")
	require.NoError(t, err)
	ctx := context.Background()

	verified, err := gw.VerifyPayment(ctx, Verification{GatewayOrderID: "pi_123", PaymentID: "ch_1"})
	require.NoError(t, err)
	assert.Equal(t, "ch_1", verified.PaymentID)

	_, err = gw.VerifyPayment(ctx, Verification{GatewayOrderID: "pi_123", PaymentID: "ch_other"})
	assert.Equal(t, "id_mismatch", FailureOf(err, StepVerification).Reason)

	_, err = gw.VerifyPayment(ctx, Verification{GatewayOrderID: "pi_missing", PaymentID: "pi_missing"})
	assert.Equal(t, string(stripe.ErrorCodeResourceMissing), FailureOf(err, StepVerification).Code)
}

func TestStripeGatewayVerifyDeclined(t *testing.T) {
	api := &stubIntents{intent: &stripe.PaymentIntent{
		ID:     "pi_9",
		Status: stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{
			Code:        stripe.ErrorCodeCardDeclined,
			Msg:         "Your card was declined.",
			DeclineCode: stripe.DeclineCodeInsufficientFunds,
		},
	}}
	gw, err := NewStripeGateway(api, "", "")
	require.NoError(t, err)

	_, err = gw.VerifyPayment(context.Background(), Verification{GatewayOrderID: "pi_9", PaymentID: "pi_9"})
	require.Error(t, err)
	failure := FailureOf(err, StepVerification)
	assert.Equal(t, "card_declined", failure.Code)
	assert.Equal(t, "insufficient_funds", failure.Reason)
	assert.Equal(t, SourceCustomer, failure.Source)
}

func TestFailureOfPlainError(t *testing.T) {
	failure := FailureOf(errors.New("boom"), StepVerification)
	assert.Equal(t, CodeGatewayError, failure.Code)
	assert.Equal(t, SourceInternal, failure.Source)
	assert.Equal(t, StepVerification, failure.Step)

	err := failure.Error("payment verification failed")
	assert.Equal(t, pkgerrors.CodePayment, err.Code())
	details := err.Details().(map[string]any)
	assert.Equal(t, StepVerification, details["step"])
}

func TestWrapTestModeGating(t *testing.T) {
	inner := &stubGateway{provider: enums.PaymentProviderRazorpay}

	gw, err := wrapTestMode(inner, inner.provider, false, false, true)
	require.NoError(t, err)
	assert.Same(t, inner, gw)

	_, err = wrapTestMode(inner, inner.provider, true, false, false)
	assert.ErrorIs(t, err, errTestModeNotCompiled)

	_, err = wrapTestMode(inner, inner.provider, true, true, true)
	assert.ErrorIs(t, err, errTestModeProduction)

	gw, err = wrapTestMode(inner, inner.provider, true, false, true)
	require.NoError(t, err)
	assert.True(t, isTestMode(gw))
}

func TestTestModeGatewaySynthesizesOrders(t *testing.T) {
	inner := &stubGateway{provider: enums.PaymentProviderStripe, createErr: errors.New("no credentials")}
	gw := NewTestModeGateway(inner, "")
	ctx := context.Background()

	order, err := gw.CreateOrder(ctx, GatewayOrderRequest{AmountMinor: 100, Currency: "INR"})
	require.NoError(t, err)
	assert.Regexp(t, `^order_test_[0-9a-f]{14}$`, order.ID)
	assert.Equal(t, enums.PaymentProviderStripe, gw.Provider())

	verified, err := gw.VerifyPayment(ctx, Verification{GatewayOrderID: order.ID, PaymentID: "pay_x", Signature: "garbage"})
	require.NoError(t, err)
	assert.Equal(t, "pay_x", verified.PaymentID)

	bare := NewTestModeGateway(nil, enums.PaymentProviderRazorpay)
	assert.Equal(t, enums.PaymentProviderRazorpay, bare.Provider())
	order, err = bare.CreateOrder(ctx, GatewayOrderRequest{AmountMinor: 100})
	require.NoError(t, err)
	assert.Contains(t, order.ID, "order_test_")
}
