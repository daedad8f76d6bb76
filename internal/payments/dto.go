package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/format"
)

// Prefill is the customer data the checkout form starts with.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// RetryOptions is passed straight to the checkout script.
type RetryOptions struct {
	Enabled  bool `json:"enabled"`
	MaxCount int  `json:"max_count"`
}

// CheckoutOptions configures the provider's browser checkout.
type CheckoutOptions struct {
	Key            string            `json:"key,omitempty"`
	AmountMinor    int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description"`
	GatewayOrderID string            `json:"order_id"`
	ClientSecret   string            `json:"client_secret,omitempty"`
	Prefill        Prefill           `json:"prefill"`
	Notes          map[string]string `json:"notes,omitempty"`
	Retry          RetryOptions      `json:"retry"`
}

// CheckoutSession is returned by Initiate. The client loads ScriptURL once
// and opens the checkout with Options.
type CheckoutSession struct {
	AttemptID       uuid.UUID                   `json:"attempt_id"`
	OrderID         uuid.UUID                   `json:"order_id"`
	OrderNumber     string                      `json:"order_number"`
	Provider        enums.PaymentProvider       `json:"provider"`
	State           enums.PaymentAttemptState   `json:"state"`
	History         []enums.PaymentAttemptState `json:"history"`
	TestMode        bool                        `json:"test_mode"`
	ScriptURL       string                      `json:"script_url,omitempty"`
	Amount          decimal.Decimal             `json:"amount"`
	FormattedAmount string                      `json:"formatted_amount"`
	Options         CheckoutOptions             `json:"options"`
}

// AttemptDTO is the public view of a payment attempt.
type AttemptDTO struct {
	ID               uuid.UUID                 `json:"id"`
	OrderID          uuid.UUID                 `json:"order_id"`
	Provider         enums.PaymentProvider     `json:"provider"`
	State            enums.PaymentAttemptState `json:"state"`
	Amount           decimal.Decimal           `json:"amount"`
	FormattedAmount  string                    `json:"formatted_amount"`
	Currency         string                    `json:"currency"`
	GatewayOrderID   *string                   `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string                   `json:"gateway_payment_id,omitempty"`
	TestMode         bool                      `json:"test_mode"`
	Failure          *Failure                  `json:"failure,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func newAttemptDTO(a *models.PaymentAttempt) *AttemptDTO {
	dto := &AttemptDTO{
		ID:               a.ID,
		OrderID:          a.OrderID,
		Provider:         a.Provider,
		State:            a.State,
		Amount:           a.Amount,
		FormattedAmount:  format.FormatCurrency(a.Amount),
		Currency:         a.Currency,
		GatewayOrderID:   a.GatewayOrderID,
		GatewayPaymentID: a.GatewayPaymentID,
		TestMode:         a.TestMode,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.FailureCode != nil {
		dto.Failure = &Failure{
			Code:        deref(a.FailureCode),
			Description: deref(a.FailureDescription),
			Source:      deref(a.FailureSource),
			Step:        deref(a.FailureStep),
			Reason:      deref(a.FailureReason),
		}
	}
	return dto
}

func applyFailure(a *models.PaymentAttempt, f Failure) {
	a.FailureCode = ptr(f.Code)
	a.FailureDescription = ptr(f.Description)
	a.FailureSource = ptr(f.Source)
	a.FailureStep = ptr(f.Step)
	a.FailureReason = ptr(f.Reason)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clearFailure(a *models.PaymentAttempt) {
	a.FailureCode = nil
	a.FailureDescription = nil
	a.FailureSource = nil
	a.FailureStep = nil
	a.FailureReason = nil
}
