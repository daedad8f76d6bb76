package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/support"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func supportUnavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "support service unavailable"))
}

// QuerySubmit accepts the public contact form. A signed-in caller is linked
// to the query.
func QuerySubmit(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			supportUnavailable(r, w, logg)
			return
		}
		userID, err := optionalUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body support.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.UserID = userID
		body.Subject = validators.CleanText(body.Subject)
		body.Message = validators.CleanText(body.Message)

		query, err := svc.Submit(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, query)
	}
}

// AdminQueryList filters by ?status.
func AdminQueryList(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			supportUnavailable(r, w, logg)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		if status != "" {
			if _, err := enums.ParseQueryStatus(status); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
		}

		page, err := svc.List(r.Context(), support.ListInput{Status: status, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminQueryGet(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			supportUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "queryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, query)
	}
}

func AdminQueryUpdateStatus(svc support.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			supportUnavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "queryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body support.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := svc.UpdateStatus(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, query)
	}
}
