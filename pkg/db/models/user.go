package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// User is the minimal account projection the order core needs; registration
// and credentials live in the identity service.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Email     string     `gorm:"column:email;not null;uniqueIndex"`
	Phone     string     `gorm:"column:phone;not null"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	Addresses []Address  `gorm:"foreignKey:UserID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}
