// Package razorpay is a small REST client for the Razorpay Orders API and
// checkout signature verification.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://api.razorpay.com"
	defaultTimeout       = 10 * time.Second
	responseBodyReadLimit int64 = 4096
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// Client calls the Razorpay API with basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a client for the key pair.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret = strings.TrimSpace(keySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	client := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// KeyID is the public key handed to the checkout script.
func (c *Client) KeyID() string {
	return c.keyID
}

// OrderRequest is the body of POST /v1/orders. Amount is in paise.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the created order.
type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Attempts  int               `json:"attempts"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// APIError is Razorpay's error envelope body.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
	Field       string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// CreateOrder creates a remote order the checkout will collect against.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, errors.New("razorpay order amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = "INR"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute order request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &order, nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        "SERVER_ERROR",
			Description: strings.TrimSpace(string(body)),
			Source:      "gateway",
		}
	}
	envelope.Error.StatusCode = resp.StatusCode
	return &envelope.Error
}

// VerifyPaymentSignature checks the checkout handler's signature, an
// HMAC-SHA256 of "order_id|payment_id" keyed with the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID+"|"+paymentID, signature, c.keySecret)
}

// VerifySignature compares a hex HMAC-SHA256 signature in constant time.
func VerifySignature(message, signature, secret string) bool {
	if message == "" || signature == "" || secret == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign returns the hex HMAC-SHA256 of message, as Razorpay computes it.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
