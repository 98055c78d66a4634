package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// ReturnOrder is a post-delivery return request against one order line item.
type ReturnOrder struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Order           *Order             `gorm:"foreignKey:OrderID"`
	OrderLineItemID uuid.UUID          `gorm:"column:order_line_item_id;type:uuid;not null;index"`
	OrderLineItem   *OrderLineItem     `gorm:"foreignKey:OrderLineItemID"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	TransporterID   *uuid.UUID         `gorm:"column:transporter_id;type:uuid"`
	AddressID       uuid.UUID          `gorm:"column:address_id;type:uuid;not null"`
	Address         *Address           `gorm:"foreignKey:AddressID"`
	Qty             int                `gorm:"column:qty;not null"`
	Reason          string             `gorm:"column:reason;not null"`
	Status          enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'processing'"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	ReturnedAt      *time.Time         `gorm:"column:returned_at"`
	DeletedAt       *time.Time         `gorm:"column:deleted_at"`
}
