package returns

import (
	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// CreateInput captures a return request for one delivered line item.
type CreateInput struct {
	UserID          uuid.UUID
	OrderLineItemID uuid.UUID
	AddressID       uuid.UUID
	Qty             int
	Reason          string
}

// ListFilters describe the inputs supported by the admin return list.
type ListFilters struct {
	Status        *enums.ReturnStatus
	UserID        *uuid.UUID
	TransporterID *uuid.UUID
}

// ReturnList wraps paginated returns plus the next page cursor.
type ReturnList struct {
	Returns    []models.ReturnOrder `json:"returns"`
	NextCursor string               `json:"next_cursor,omitempty"`
}
