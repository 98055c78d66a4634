package orders

import (
	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// CheckoutInput captures a checkout request for the authenticated user. The
// cart supplies the lines and the promo; everything else arrives here.
type CheckoutInput struct {
	UserID           uuid.UUID
	AddressID        uuid.UUID
	PaymentMethod    enums.PaymentMethod
	DeliveryNeeded   bool
	WalletIdentifier string
}

// CheckoutResult is the created order plus, for gateway methods, the URL the
// customer finishes payment on.
type CheckoutResult struct {
	Order      *models.Order
	PaymentURL string
}

// ListFilters describe the inputs supported by the admin order list.
type ListFilters struct {
	Status        *enums.OrderStatus
	UserID        *uuid.UUID
	TransporterID *uuid.UUID
}

// OrderList wraps paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
