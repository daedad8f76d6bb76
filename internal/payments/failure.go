package payments

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Failure sources and steps used when the gateway gives no detail.
const (
	SourceGateway  = "gateway"
	SourceCustomer = "customer"
	SourceInternal = "internal"

	StepCreateOrder   = "payment_initiation"
	StepAuthorization = "payment_authorization"
	StepVerification  = "payment_verification"

	CodeGatewayError       = "GATEWAY_ERROR"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodePaymentExpired     = "PAYMENT_EXPIRED"
)

// Failure is the normalized shape of every gateway error surfaced to callers.
type Failure struct {
	Code        string `json:"code" validate:"omitempty,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Source      string `json:"source" validate:"omitempty,max=100"`
	Step        string `json:"step" validate:"omitempty,max=100"`
	Reason      string `json:"reason" validate:"omitempty,max=200"`
}

// Normalize fills the blanks so the failure is always presentable.
func (f Failure) Normalize(defaultStep string) Failure {
	f.Code = strings.TrimSpace(f.Code)
	f.Description = strings.TrimSpace(f.Description)
	f.Source = strings.TrimSpace(f.Source)
	f.Step = strings.TrimSpace(f.Step)
	f.Reason = strings.TrimSpace(f.Reason)
	if f.Code == "" {
		f.Code = CodeGatewayError
	}
	if f.Description == "" {
		f.Description = "payment could not be completed"
	}
	if f.Source == "" {
		f.Source = SourceGateway
	}
	if f.Step == "" {
		f.Step = defaultStep
	}
	return f
}

// Details renders the failure as error details.
func (f Failure) Details() map[string]any {
	return map[string]any{
		"code":        f.Code,
		"description": f.Description,
		"source":      f.Source,
		"step":        f.Step,
		"reason":      f.Reason,
	}
}

// Error builds the PAYMENT_FAILED error carrying the failure.
func (f Failure) Error(message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodePayment, message).WithDetails(f.Details())
}

// GatewayError is returned by gateways so callers can read the normalized
// failure without knowing the provider.
type GatewayError struct {
	Failure Failure
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Failure.Code
	if e.Failure.Description != "" {
		msg += ": " + e.Failure.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// FailureOf extracts the normalized failure from any error. Non gateway
// errors become a generic gateway failure at step.
func FailureOf(err error, step string) Failure {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Failure.Normalize(step)
	}
	f := Failure{Source: SourceInternal, Reason: "unexpected_error"}
	if err != nil {
		f.Description = err.Error()
	}
	return f.Normalize(step)
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
