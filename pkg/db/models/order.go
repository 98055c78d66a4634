package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// Order is one customer purchase. Status transitions happen exclusively
// through the order lifecycle service's guarded updates.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TransporterID  *uuid.UUID          `gorm:"column:transporter_id;type:uuid"`
	PromoCodeID    *uuid.UUID          `gorm:"column:promo_code_id;type:uuid"`
	PromoCode      *PromoCode          `gorm:"foreignKey:PromoCodeID"`
	AddressID      uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Address        *Address            `gorm:"foreignKey:AddressID"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'paying'"`
	Currency       string              `gorm:"column:currency;not null;default:'EGP'"`
	TotalCents     int64               `gorm:"column:total_cents;not null"`
	DeliveryNeeded bool                `gorm:"column:delivery_needed;not null;default:false"`
	GatewayOrderID *int64              `gorm:"column:gateway_order_id"`
	Items          []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt    *time.Time          `gorm:"column:delivered_at"`
	DeletedAt      *time.Time          `gorm:"column:deleted_at"`
}

// OrderLineItem is an immutable snapshot of a product at order-creation time.
// Later product edits never change historical orders; the only mutable field
// is the returned marker.
type OrderLineItem struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID           uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	Product             *Product   `gorm:"foreignKey:ProductID"`
	Name                string     `gorm:"column:name;not null"`
	UnitPriceCents      int64      `gorm:"column:unit_price_cents;not null"`
	SalePercent         int        `gorm:"column:sale_percent;not null"`
	Qty                 int        `gorm:"column:qty;not null"`
	WarrantyDays        int        `gorm:"column:warranty_days;not null"`
	PartiallyReturnedAt *time.Time `gorm:"column:partially_returned_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// EffectiveUnitCents returns the sale-adjusted unit price in minor units.
func (i OrderLineItem) EffectiveUnitCents() int64 {
	return i.UnitPriceCents * int64(100-i.SalePercent) / 100
}
