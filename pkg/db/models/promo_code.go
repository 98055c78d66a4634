package models

import (
	"time"

	"github.com/google/uuid"
)

// PromoCode is a percent-off discount with an optional cap in minor units.
type PromoCode struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code         string     `gorm:"column:code;not null;uniqueIndex"`
	Description  string     `gorm:"column:description;not null"`
	Percent      int        `gorm:"column:percent;not null"`
	MaxSaleCents *int64     `gorm:"column:max_sale_cents"`
	Active       bool       `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}
