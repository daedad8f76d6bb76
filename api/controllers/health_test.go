package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReadyDependencyDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("dial tcp")}}
	rec := httptest.NewRecorder()
	HealthReady(cfg, deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestHealthReadyOK(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	deps := map[string]Pinger{"db": stubPinger{}, "redis": nil}
	rec := httptest.NewRecorder()
	HealthReady(cfg, deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
