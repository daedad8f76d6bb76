package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

type razorpayAPI interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// RazorpayGateway collects payments through Razorpay's signed checkout.
type RazorpayGateway struct {
	api       razorpayAPI
	scriptURL string
}

// NewRazorpayGateway wraps a Razorpay API client.
func NewRazorpayGateway(api razorpayAPI, scriptURL string) (*RazorpayGateway, error) {
	if api == nil {
		return nil, errors.New("razorpay client required")
	}
	return &RazorpayGateway{api: api, scriptURL: strings.TrimSpace(scriptURL)}, nil
}

func (g *RazorpayGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderRazorpay
}

func (g *RazorpayGateway) Checkout() CheckoutConfig {
	return CheckoutConfig{ScriptURL: g.scriptURL, PublicKey: g.api.KeyID()}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	order, err := g.api.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, razorpayFailure(err, StepCreateOrder)
	}
	return &GatewayOrder{
		ID:          order.ID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Status:      order.Status,
	}, nil
}

func (g *RazorpayGateway) VerifyPayment(_ context.Context, v Verification) (*VerifiedPayment, error) {
	if !g.api.VerifyPaymentSignature(v.GatewayOrderID, v.PaymentID, v.Signature) {
		return nil, &GatewayError{Failure: Failure{
			Code:        CodeVerificationFailed,
			Description: "payment signature mismatch",
			Source:      SourceInternal,
			Step:        StepVerification,
			Reason:      "signature_mismatch",
		}}
	}
	return &VerifiedPayment{GatewayOrderID: v.GatewayOrderID, PaymentID: v.PaymentID}, nil
}

func razorpayFailure(err error, step string) error {
	var apiErr *razorpay.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{
			Failure: Failure{
				Code:        apiErr.Code,
				Description: apiErr.Description,
				Source:      apiErr.Source,
				Step:        apiErr.Step,
				Reason:      apiErr.Reason,
			}.Normalize(step),
			Err: err,
		}
	}
	return &GatewayError{
		Failure: Failure{Source: SourceGateway, Reason: "gateway_unreachable", Description: "payment gateway unavailable"}.Normalize(step),
		Err:     err,
	}
}
