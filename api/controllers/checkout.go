package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/api/middleware"
	"github.com/omarashraf/dokkan-backend/api/responses"
	"github.com/omarashraf/dokkan-backend/api/validators"
	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
)

type checkoutRequest struct {
	AddressID        uuid.UUID `json:"address_id" validate:"required"`
	PaymentMethod    string    `json:"payment_method" validate:"required"`
	DeliveryNeeded   bool      `json:"delivery_needed"`
	WalletIdentifier string    `json:"wallet_identifier,omitempty"`
}

type checkoutResponse struct {
	Order      any    `json:"order"`
	PaymentURL string `json:"payment_url,omitempty"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Checkout(r.Context(), orders.CheckoutInput{
			UserID:           principal.UserID,
			AddressID:        req.AddressID,
			PaymentMethod:    method,
			DeliveryNeeded:   req.DeliveryNeeded,
			WalletIdentifier: req.WalletIdentifier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:      result.Order,
			PaymentURL: result.PaymentURL,
		})
	}
}
