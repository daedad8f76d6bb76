package types

// RequestIDHeader is echoed on every response and repeated inside error
// bodies so customers can quote it to support.
const RequestIDHeader = "X-Request-Id"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Retryable tells checkout clients
// whether offering "try again" makes sense, e.g. after a payment failure.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
