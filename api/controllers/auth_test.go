package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubAuthService struct {
	resp      *auth.LoginResponse
	err       error
	lastLogin auth.LoginRequest
	adminCall bool
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.lastLogin = req
	return s.resp, s.err
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.adminCall = true
	return s.resp, s.err
}

type stubCartMerger struct {
	token  string
	userID uuid.UUID
	err    error
}

func (s *stubCartMerger) Merge(ctx context.Context, guestToken string, userID uuid.UUID) (*cart.View, error) {
	s.token = guestToken
	s.userID = userID
	return &cart.View{}, s.err
}

func loginResponse(role enums.UserRole) *auth.LoginResponse {
	return &auth.LoginResponse{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User: &users.UserDTO{
			ID:        uuid.New(),
			Email:     "asha@example.com",
			FirstName: "Asha",
			LastName:  "Rao",
			Role:      role,
			IsActive:  true,
		},
	}
}

func TestAuthLoginMergesGuestCart(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse(enums.UserRoleCustomer)}
	merger := &stubCartMerger{}
	handler := AuthLogin(svc, merger, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"asha@example.com","password":"Secret123!"}`))
	req.Header.Set(middleware.CartTokenHeader, "guest-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get(middleware.AccessTokenHeader); got != "access-token" {
		t.Fatalf("expected access token header, got %q", got)
	}
	if merger.token != "guest-token" || merger.userID != svc.resp.User.ID {
		t.Fatalf("expected merge of guest-token into %s, got %q/%s", svc.resp.User.ID, merger.token, merger.userID)
	}

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected refresh token %q", envelope.Data.RefreshToken)
	}
}

func TestAuthLoginMergeFailureDoesNotFailLogin(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse(enums.UserRoleCustomer)}
	merger := &stubCartMerger{err: errors.New("redis down")}
	handler := AuthLogin(svc, merger, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"asha@example.com","password":"Secret123!"}`))
	req.Header.Set(middleware.CartTokenHeader, "guest-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAuthLoginSkipsMergeWithoutToken(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse(enums.UserRoleCustomer)}
	merger := &stubCartMerger{}
	handler := AuthLogin(svc, merger, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"asha@example.com","password":"Secret123!"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if merger.token != "" {
		t.Fatalf("expected no merge, got %q", merger.token)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"asha@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthLoginRejectsBadEmail(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse(enums.UserRoleCustomer)}
	handler := AuthLogin(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"nope","password":"x"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastLogin.Email != "" {
		t.Fatalf("service should not be called")
	}
}

func TestAdminAuthLogin(t *testing.T) {
	svc := &stubAuthService{resp: loginResponse(enums.UserRoleAdmin)}
	handler := AdminAuthLogin(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", bytes.NewBufferString(`{"email":"admin@example.com","password":"Secret123!"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.adminCall {
		t.Fatalf("expected admin login call")
	}
}
