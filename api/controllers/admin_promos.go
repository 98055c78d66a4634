package controllers

import (
	"net/http"

	"github.com/omarashraf/dokkan-backend/api/middleware"
	"github.com/omarashraf/dokkan-backend/api/responses"
	"github.com/omarashraf/dokkan-backend/api/validators"
	"github.com/omarashraf/dokkan-backend/internal/promo"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
)

type createPromoRequest struct {
	Code         string `json:"code" validate:"required"`
	Description  string `json:"description,omitempty"`
	Percent      int    `json:"percent" validate:"required,min=1,max=99"`
	MaxSaleCents *int64 `json:"max_sale_cents,omitempty" validate:"omitempty,min=0"`
	Active       bool   `json:"active"`
}

type setPromoActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func AdminPromoCreate(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPromoRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), promo.CreateInput{
			Code:         req.Code,
			Description:  req.Description,
			Percent:      req.Percent,
			MaxSaleCents: req.MaxSaleCents,
			Active:       req.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminPromoList(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promos, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promos)
	}
}

func AdminPromoSetActive(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		promoID, err := parseIDParam(r, "promoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setPromoActiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetActive(r.Context(), principal.UserID, promoID, *req.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AdminPromoDelete(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		promoID, err := parseIDParam(r, "promoID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), principal.UserID, promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
