package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing plus its stock counter. Quantity is mutated
// only through the inventory ledger's guarded updates.
type Product struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	SKU          string     `gorm:"column:sku;not null;uniqueIndex"`
	Description  string     `gorm:"column:description;not null"`
	Quantity     int        `gorm:"column:quantity;not null;default:0"`
	PriceCents   int64      `gorm:"column:price_cents;not null"`
	SalePercent  int        `gorm:"column:sale_percent;not null;default:0"`
	WarrantyDays int        `gorm:"column:warranty_days;not null;default:14"`
	Views        int64      `gorm:"column:views;not null;default:0"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}

// Available reports whether the product can still be reserved.
func (p Product) Available() bool {
	return p.DeletedAt == nil && p.Quantity > 0
}
