package enums

import "fmt"

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodOnline,
	PaymentMethodCOD,
}

// String implements fmt.Stringer.
func (v PaymentMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentMethod.
func (v PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
