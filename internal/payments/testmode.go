package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var (
	errTestModeNotCompiled = errors.New("payments test mode requested but binary was built without the paymentstestmode tag")
	errTestModeProduction  = errors.New("payments test mode is not allowed in production")
)

// TestModeGateway wraps a real gateway for non-production checkouts. Gateway
// order creation failures are replaced by a synthetic order_test_* order and
// verification always succeeds.
type TestModeGateway struct {
	inner    Gateway
	provider enums.PaymentProvider
}

// NewTestModeGateway wraps inner. inner may be nil when no credentials are
// configured; provider then names the gateway the session reports.
func NewTestModeGateway(inner Gateway, provider enums.PaymentProvider) *TestModeGateway {
	if inner != nil {
		provider = inner.Provider()
	}
	return &TestModeGateway{inner: inner, provider: provider}
}

func (g *TestModeGateway) TestMode() bool { return true }

func (g *TestModeGateway) Provider() enums.PaymentProvider {
	return g.provider
}

func (g *TestModeGateway) Checkout() CheckoutConfig {
	if g.inner == nil {
		return CheckoutConfig{}
	}
	return g.inner.Checkout()
}

func (g *TestModeGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	if g.inner != nil {
		if order, err := g.inner.CreateOrder(ctx, req); err == nil {
			return order, nil
		}
	}
	return &GatewayOrder{
		ID:          "order_test_" + randomSuffix(),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      "created",
	}, nil
}

func (g *TestModeGateway) VerifyPayment(_ context.Context, v Verification) (*VerifiedPayment, error) {
	paymentID := v.PaymentID
	if paymentID == "" {
		paymentID = "pay_test_" + randomSuffix()
	}
	return &VerifiedPayment{GatewayOrderID: v.GatewayOrderID, PaymentID: paymentID}, nil
}

// wrapTestMode applies the test mode wrapper only when the binary carries
// the paymentstestmode tag, test mode is requested and the app is not
// running in production.
func wrapTestMode(gw Gateway, provider enums.PaymentProvider, requested, production, compiled bool) (Gateway, error) {
	if !requested {
		return gw, nil
	}
	if !compiled {
		return nil, errTestModeNotCompiled
	}
	if production {
		return nil, errTestModeProduction
	}
	return NewTestModeGateway(gw, provider), nil
}

func randomSuffix() string {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		return "00000000000000"
	}
	return hex.EncodeToString(buf)
}
