package payments

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Gateway is a remote payment provider.
type Gateway interface {
	Provider() enums.PaymentProvider
	Checkout() CheckoutConfig
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	VerifyPayment(ctx context.Context, v Verification) (*VerifiedPayment, error)
}

// CheckoutConfig is what the browser needs to load the provider's script.
type CheckoutConfig struct {
	ScriptURL string
	PublicKey string
}

// GatewayOrderRequest creates the remote order for an amount in minor units.
type GatewayOrderRequest struct {
	AmountMinor   int64
	Currency      string
	Receipt       string
	CustomerEmail string
	Notes         map[string]string
}

// GatewayOrder is the provider's view of the created order.
type GatewayOrder struct {
	ID           string
	AmountMinor  int64
	Currency     string
	Status       string
	ClientSecret string
}

// Verification is what the checkout handed back after the customer paid.
type Verification struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required"`
	PaymentID      string `json:"payment_id" validate:"required"`
	Signature      string `json:"signature"`
}

// VerifiedPayment identifies the settled payment.
type VerifiedPayment struct {
	GatewayOrderID string
	PaymentID      string
}

type testModeReporter interface {
	TestMode() bool
}

func isTestMode(gw Gateway) bool {
	reporter, ok := gw.(testModeReporter)
	return ok && reporter.TestMode()
}
