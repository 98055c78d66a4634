package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a shipping or pickup location. A nil UserID marks a store
// address usable by any order without delivery.
type Address struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	Apartment  string     `gorm:"column:apartment"`
	Floor      string     `gorm:"column:floor"`
	Street     string     `gorm:"column:street;not null"`
	Building   string     `gorm:"column:building"`
	PostalCode string     `gorm:"column:postal_code"`
	City       string     `gorm:"column:city;not null"`
	State      string     `gorm:"column:state"`
	Country    string     `gorm:"column:country;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
}

// IsStore reports whether the address belongs to the store rather than a user.
func (a Address) IsStore() bool {
	return a.UserID == nil
}
