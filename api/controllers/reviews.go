package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type moderateReviewPayload struct {
	Published *bool `json:"published" validate:"required"`
}

// ProductReviewList returns published reviews and the rating summary.
func ProductReviewList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.ListForProduct(ctx, chi.URLParam(r, "slug"), params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ProductReviewSubmit creates or replaces the caller's review of a product.
func ProductReviewSubmit(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body reviews.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		body.Body = validators.CleanText(body.Body)
		if body.Title != nil {
			title := validators.CleanText(*body.Title)
			body.Title = &title
		}

		resp, err := svc.Submit(ctx, userID, chi.URLParam(r, "slug"), body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func ProductReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteOwn(ctx, userID, strings.TrimSpace(chi.URLParam(r, "slug"))); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminReviewModerate hides or republishes a review.
func AdminReviewModerate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}
		reviewID, err := uuidParam(r, "reviewID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body moderateReviewPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Moderate(ctx, reviewID, *body.Published)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func AdminReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reviews service unavailable"))
			return
		}
		reviewID, err := uuidParam(r, "reviewID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, reviewID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
