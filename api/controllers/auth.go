package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartMerger interface {
	Merge(ctx context.Context, guestToken string, userID uuid.UUID) (*cart.View, error)
}

// AuthLogin wires the login endpoint into the HTTP layer. A guest cart named
// by the cart token header is folded into the user's cart.
func AuthLogin(svc auth.Service, carts cartMerger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mergeGuestCart(r, carts, result, logg)

		w.Header().Set(middleware.AccessTokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(middleware.AccessTokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// mergeGuestCart never fails the login; the guest cart stays addressable by
// its token when the merge does not go through.
func mergeGuestCart(r *http.Request, carts cartMerger, result *auth.LoginResponse, logg *logger.Logger) {
	token := strings.TrimSpace(r.Header.Get(middleware.CartTokenHeader))
	if carts == nil || token == "" || result == nil || result.User == nil {
		return
	}
	if _, err := carts.Merge(r.Context(), token, result.User.ID); err != nil && logg != nil {
		ctx := logg.WithUserID(r.Context(), result.User.ID.String())
		logg.Warn(ctx, "guest cart merge failed: "+err.Error())
	}
}
