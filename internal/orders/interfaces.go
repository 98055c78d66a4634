package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetLineItem(ctx context.Context, id uuid.UUID) (*models.OrderLineItem, error)
	HasOpenOrder(ctx context.Context, userID uuid.UUID) (bool, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID int64) error
	Transition(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error)
	CancelOpen(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	SetLineItemPartiallyReturned(ctx context.Context, lineItemID uuid.UUID, at time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, *pagination.Cursor, error)
}
