package enums

import "fmt"

// PaymentAttemptState is a node of the checkout payment flow.
type PaymentAttemptState string

const (
	PaymentAttemptStateIdle                PaymentAttemptState = "idle"
	PaymentAttemptStateScriptLoading       PaymentAttemptState = "script_loading"
	PaymentAttemptStateGatewayOrderCreated PaymentAttemptState = "gateway_order_created"
	PaymentAttemptStateCheckoutOpen        PaymentAttemptState = "checkout_open"
	PaymentAttemptStateVerifying           PaymentAttemptState = "verifying"
	PaymentAttemptStatePaid                PaymentAttemptState = "paid"
	PaymentAttemptStateVerificationFailed  PaymentAttemptState = "verification_failed"
	PaymentAttemptStateCancelled           PaymentAttemptState = "cancelled"
	PaymentAttemptStateFailed              PaymentAttemptState = "failed"
)

var validPaymentAttemptStates = []PaymentAttemptState{
	PaymentAttemptStateIdle,
	PaymentAttemptStateScriptLoading,
	PaymentAttemptStateGatewayOrderCreated,
	PaymentAttemptStateCheckoutOpen,
	PaymentAttemptStateVerifying,
	PaymentAttemptStatePaid,
	PaymentAttemptStateVerificationFailed,
	PaymentAttemptStateCancelled,
	PaymentAttemptStateFailed,
}

// String implements fmt.Stringer.
func (v PaymentAttemptState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentAttemptState.
func (v PaymentAttemptState) IsValid() bool {
	for _, candidate := range validPaymentAttemptStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentAttemptState converts raw input into a PaymentAttemptState.
func ParsePaymentAttemptState(value string) (PaymentAttemptState, error) {
	for _, candidate := range validPaymentAttemptStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment attempt state %q", value)
}

// IsTerminal reports whether no further transitions are allowed from the state.
func (v PaymentAttemptState) IsTerminal() bool {
	switch v {
	case PaymentAttemptStatePaid,
		PaymentAttemptStateVerificationFailed,
		PaymentAttemptStateCancelled,
		PaymentAttemptStateFailed:
		return true
	}
	return false
}
