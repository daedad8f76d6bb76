package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// cartOwner resolves whose cart the request addresses. Signed-in users win
// over the guest header. A guest without a token gets a fresh one, echoed
// back in the cart token header.
func cartOwner(w http.ResponseWriter, r *http.Request, issue bool) (cart.Owner, error) {
	userID, err := optionalUserID(r)
	if err != nil {
		return cart.Owner{}, err
	}
	if userID != nil {
		return cart.Owner{UserID: *userID}, nil
	}

	token := strings.TrimSpace(r.Header.Get(middleware.CartTokenHeader))
	if token == "" {
		if !issue {
			return cart.Owner{}, nil
		}
		token = cart.NewGuestToken()
	} else if _, err := uuid.Parse(token); err != nil {
		return cart.Owner{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart token")
	}
	w.Header().Set(middleware.CartTokenHeader, token)
	return cart.Owner{GuestToken: token}, nil
}

func cartUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
}

// CartGet returns the cart with its totals. A guest with no token sees an
// empty cart and no token is minted until the first write.
func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			cartUnavailable(r, w, logg)
			return
		}
		owner, err := cartOwner(w, r, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !owner.Valid() {
			responses.WriteSuccess(w, cart.View{Items: []cart.ItemView{}})
			return
		}

		view, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds a line or bumps the quantity of an existing one.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			cartUnavailable(r, w, logg)
			return
		}
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := cartOwner(w, r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := body.Quantity
		if quantity == 0 {
			quantity = 1
		}
		view, err := svc.AddItem(r.Context(), owner, cart.AddItemInput{
			ProductID: body.ProductID,
			VariantID: body.VariantID,
			Quantity:  quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartUpdateItem sets a line's quantity. Quantities below one are floored
// to one; removal goes through CartRemoveItem.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			cartUnavailable(r, w, logg)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := cartOwner(w, r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateItem(r.Context(), owner, cart.UpdateItemInput{
			ProductID: productID,
			VariantID: body.VariantID,
			Quantity:  body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem drops a line; ?variant_id selects the variant line.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			cartUnavailable(r, w, logg)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := optionalUUIDQuery(r, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := cartOwner(w, r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.RemoveItem(r.Context(), owner, productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			cartUnavailable(r, w, logg)
			return
		}
		owner, err := cartOwner(w, r, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Clear(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
