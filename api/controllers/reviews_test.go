package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubReviewService struct {
	slug      string
	submitted reviews.SubmitInput
	published *bool
	deleted   uuid.UUID
}

func (s *stubReviewService) Submit(ctx context.Context, userID uuid.UUID, slug string, input reviews.SubmitInput) (*reviews.ReviewDTO, error) {
	s.slug = slug
	s.submitted = input
	return &reviews.ReviewDTO{ID: uuid.New(), Rating: input.Rating, Body: input.Body}, nil
}

func (s *stubReviewService) ListForProduct(ctx context.Context, slug string, params pagination.Params) (*reviews.ProductReviewsDTO, error) {
	s.slug = slug
	return &reviews.ProductReviewsDTO{Items: []reviews.ReviewDTO{}}, nil
}

func (s *stubReviewService) DeleteOwn(ctx context.Context, userID uuid.UUID, slug string) error {
	s.slug = slug
	return nil
}

func (s *stubReviewService) Moderate(ctx context.Context, reviewID uuid.UUID, published bool) (*reviews.ReviewDTO, error) {
	s.published = &published
	return &reviews.ReviewDTO{ID: reviewID, IsPublished: published}, nil
}

func (s *stubReviewService) Delete(ctx context.Context, reviewID uuid.UUID) error {
	s.deleted = reviewID
	return nil
}

func TestProductReviewSubmitCleansText(t *testing.T) {
	svc := &stubReviewService{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"rating":4,"title":" Good\u0007 ","body":" Soft\u0000 fabric "}`))
	req = withURLParam(req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString())), "slug", "cotton-kurta")
	rec := httptest.NewRecorder()

	ProductReviewSubmit(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.slug != "cotton-kurta" {
		t.Fatalf("expected slug cotton-kurta, got %q", svc.slug)
	}
	if svc.submitted.Body != "Soft fabric" {
		t.Fatalf("expected cleaned body, got %q", svc.submitted.Body)
	}
	if svc.submitted.Title == nil || *svc.submitted.Title != "Good" {
		t.Fatalf("expected cleaned title, got %v", svc.submitted.Title)
	}
}

func TestProductReviewSubmitRejectsRating(t *testing.T) {
	svc := &stubReviewService{}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"rating":9,"body":"ok"}`))
	req = withURLParam(req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString())), "slug", "cotton-kurta")
	rec := httptest.NewRecorder()

	ProductReviewSubmit(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.slug != "" {
		t.Fatalf("service should not be called")
	}
}

func TestProductReviewSubmitRequiresUser(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"rating":4,"body":"ok"}`)), "slug", "cotton-kurta")
	rec := httptest.NewRecorder()

	ProductReviewSubmit(&stubReviewService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminReviewModerateRequiresFlag(t *testing.T) {
	svc := &stubReviewService{}
	reviewID := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{}`)), "reviewID", reviewID.String())
	rec := httptest.NewRecorder()
	AdminReviewModerate(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	req = withURLParam(httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"published":false}`)), "reviewID", reviewID.String())
	rec = httptest.NewRecorder()
	AdminReviewModerate(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.published == nil || *svc.published {
		t.Fatalf("expected review hidden")
	}
}
