package controllers

import (
	"net/http"
	"strings"

	"github.com/omarashraf/dokkan-backend/api/middleware"
	"github.com/omarashraf/dokkan-backend/api/responses"
	"github.com/omarashraf/dokkan-backend/api/validators"
	"github.com/omarashraf/dokkan-backend/internal/returns"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
)

func buildReturnFilters(r *http.Request) (returns.ListFilters, error) {
	var filters returns.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseReturnStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	userID, err := parseUUIDQuery(r, "user_id")
	if err != nil {
		return filters, err
	}
	filters.UserID = userID

	transporterID, err := parseUUIDQuery(r, "transporter_id")
	if err != nil {
		return filters, err
	}
	filters.TransporterID = transporterID
	return filters, nil
}

func AdminReturnList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildReturnFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), principal, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminReturnAssign(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		returnID, err := parseIDParam(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignTransporterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.AssignTransporter(r.Context(), principal, returnID, req.TransporterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// AdminReturnFulfill completes a pickup and restocks the returned units.
func AdminReturnFulfill(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		returnID, err := parseIDParam(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Fulfill(r.Context(), principal, returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}
