package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/support"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubSupportService struct {
	submitted support.SubmitInput
	listIn    support.ListInput
	updated   support.UpdateStatusInput
}

func (s *stubSupportService) Submit(ctx context.Context, input support.SubmitInput) (*support.QueryDTO, error) {
	s.submitted = input
	return &support.QueryDTO{ID: uuid.New(), Status: enums.QueryStatusOpen}, nil
}

func (s *stubSupportService) List(ctx context.Context, input support.ListInput) (*pagination.Page[support.QueryDTO], error) {
	s.listIn = input
	return &pagination.Page[support.QueryDTO]{}, nil
}

func (s *stubSupportService) Get(ctx context.Context, id uuid.UUID) (*support.QueryDTO, error) {
	return &support.QueryDTO{ID: id}, nil
}

func (s *stubSupportService) UpdateStatus(ctx context.Context, id uuid.UUID, input support.UpdateStatusInput) (*support.QueryDTO, error) {
	s.updated = input
	return &support.QueryDTO{ID: id, Status: input.Status}, nil
}

const queryBody = `{"name":"Asha Rao","email":"asha@example.com","subject":"  Late delivery ","message":"Where is my order?"}`

func TestQuerySubmitAnonymous(t *testing.T) {
	svc := &stubSupportService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", bytes.NewBufferString(queryBody))
	rec := httptest.NewRecorder()

	QuerySubmit(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.submitted.UserID != nil {
		t.Fatalf("anonymous query should not carry a user")
	}
	if svc.submitted.Subject != "Late delivery" {
		t.Fatalf("expected trimmed subject, got %q", svc.submitted.Subject)
	}
}

func TestQuerySubmitLinksSignedInUser(t *testing.T) {
	svc := &stubSupportService{}
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", bytes.NewBufferString(queryBody))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()

	QuerySubmit(svc, nil).ServeHTTP(rec, req)

	if svc.submitted.UserID == nil || *svc.submitted.UserID != userID {
		t.Fatalf("expected query linked to %s", userID)
	}
}

func TestQuerySubmitValidatesEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", bytes.NewBufferString(`{"name":"A","email":"nope","subject":"s","message":"m"}`))
	rec := httptest.NewRecorder()

	QuerySubmit(&stubSupportService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminQueryListStatusFilter(t *testing.T) {
	svc := &stubSupportService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/queries?status=resolved", nil)
	rec := httptest.NewRecorder()

	AdminQueryList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listIn.Status != "resolved" {
		t.Fatalf("unexpected status %q", svc.listIn.Status)
	}

	rec = httptest.NewRecorder()
	AdminQueryList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/queries?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminQueryUpdateStatus(t *testing.T) {
	svc := &stubSupportService{}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"status":"resolved","admin_notes":"refunded"}`))
	req = withURLParam(req, "queryID", id.String())
	rec := httptest.NewRecorder()

	AdminQueryUpdateStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.updated.Status != enums.QueryStatusResolved || svc.updated.AdminNotes == nil {
		t.Fatalf("unexpected update %+v", svc.updated)
	}
}

type stubDLQLister struct {
	rows  []models.OutboxDLQ
	err   error
	limit int
}

func (s *stubDLQLister) List(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	s.limit = limit
	return s.rows, s.err
}

func TestAdminOutboxDLQ(t *testing.T) {
	msg := "topic not configured"
	lister := &stubDLQLister{rows: []models.OutboxDLQ{{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}}}
	rec := httptest.NewRecorder()

	AdminOutboxDLQ(lister, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/outbox/dlq?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if lister.limit != 5 {
		t.Fatalf("expected limit 5, got %d", lister.limit)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("topic not configured")) {
		t.Fatalf("expected error message in body: %s", rec.Body.String())
	}
}

func TestAdminOutboxDLQRepositoryError(t *testing.T) {
	rec := httptest.NewRecorder()
	AdminOutboxDLQ(&stubDLQLister{err: errors.New("db down")}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
