package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func ordersUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
}

// OrderCreate places an order for the caller. Failures carry the failed
// creation step in error details.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orders.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.UserID = userID
		body.ActorRole = middleware.RoleFromContext(r.Context())

		order, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

// OrderList returns the caller's orders, newest first.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// OrderGet returns one of the caller's orders. Other users' orders are
// reported as not found.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
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

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderList supports ?status, ?payment_status, ?payment_method,
// ?user_id, ?from, ?to and ?q.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseAdminOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.AdminList(r.Context(), orders.AdminListInput{Filters: filters, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminOrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminGet(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderUpdateStatus moves an order along the fulfilment lifecycle.
func AdminOrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			ordersUnavailable(r, w, logg)
			return
		}
		actorID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orders.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").WithDetails(map[string]any{"field": "status"}))
			return
		}
		body.OrderID = orderID
		body.ActorUserID = actorID
		body.ActorRole = middleware.RoleFromContext(r.Context())

		order, err := svc.UpdateStatus(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func parseAdminOrderFilters(r *http.Request) (orders.AdminFilters, error) {
	q := r.URL.Query()
	var filters orders.AdminFilters

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(q.Get("payment_method")); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method filter")
		}
		filters.PaymentMethod = &method
	}

	userID, err := optionalUUIDQuery(r, "user_id")
	if err != nil {
		return filters, err
	}
	filters.UserID = userID

	if filters.DateFrom, err = parseDateQuery(r, "from", false); err != nil {
		return filters, err
	}
	if filters.DateTo, err = parseDateQuery(r, "to", true); err != nil {
		return filters, err
	}
	filters.Query = validators.SanitizeString(q.Get("q"), 100)
	return filters, nil
}

// parseDateQuery accepts RFC3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func parseDateQuery(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").WithDetails(map[string]any{"field": key})
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
