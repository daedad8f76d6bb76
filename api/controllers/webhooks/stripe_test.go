package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
)

func TestStripeWebhook_SuccessAndIdempotent(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	guard := newGuard(t)
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	// Replay the same event
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req2.Header.Set("Stripe-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	guard := newGuard(t)
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestStripeWebhook_FailedHandlerReleasesEvent(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeStripeWebhookService{err: errors.New("db down")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, newGuard(t), nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code < 500 {
			t.Fatalf("expected 5xx for failed handler, got %d", rec.Code)
		}
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach the service, got %d calls", service.calls)
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t)
	service := &fakeStripeWebhookService{}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func newGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	manager, err := idempotency.NewManager(newInMemoryStore(), time.Minute)
	if err != nil {
		t.Fatalf("manager setup: %v", err)
	}
	guard, err := stripewebhook.NewIdempotencyGuard(manager, stripewebhook.Consumer)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildSignedEvent(t *testing.T) ([]byte, string) {
	intent := &stripe.PaymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Amount:   59000,
		Currency: stripe.CurrencyINR,
		Status:   stripe.PaymentIntentStatusSucceeded,
	}
	rawIntent, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypePaymentIntentSucceeded,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: rawIntent,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	header := buildStripeSignatureHeader(payload, "whsec_test", time.Now().Unix())
	return payload, header
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeStripeWebhookService struct {
	calls int
	err   error
}

func (f *fakeStripeWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		data: make(map[string]string),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("sf:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
