package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func paymentsUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
}

// PaymentInitiate opens a gateway checkout for one of the caller's orders.
func PaymentInitiate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Initiate(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, session)
	}
}

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := uuidParam(r, "attemptID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.Get(r.Context(), userID, attemptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// PaymentVerify submits the gateway's success callback for verification.
// A bad signature answers 402 with the normalized failure in details.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := uuidParam(r, "attemptID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payments.Verification
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.Verify(r.Context(), userID, attemptID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// PaymentCancel records that the checkout modal was dismissed.
func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := uuidParam(r, "attemptID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.Cancel(r.Context(), userID, attemptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}

// PaymentFail records a failure reported by the gateway's client script.
// An empty body is accepted.
func PaymentFail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attemptID, err := uuidParam(r, "attemptID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payments.Failure
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		attempt, err := svc.Fail(r.Context(), userID, attemptID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, attempt)
	}
}
