package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// EditRecord is one append-only field mutation of a historied entity.
type EditRecord struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	EditorID   *uuid.UUID        `gorm:"column:editor_id;type:uuid"`
	EntityType enums.AuditEntity `gorm:"column:entity_type;type:text;not null;index:idx_edit_records_entity"`
	EntityID   uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index:idx_edit_records_entity"`
	Field      string            `gorm:"column:field;not null"`
	OldValue   string            `gorm:"column:old_value;not null"`
	NewValue   string            `gorm:"column:new_value;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// DeleteRecord is one append-only soft-delete marker.
type DeleteRecord struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	DeleterID  uuid.UUID         `gorm:"column:deleter_id;type:uuid;not null"`
	EntityType enums.AuditEntity `gorm:"column:entity_type;type:text;not null;index:idx_delete_records_entity"`
	EntityID   uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index:idx_delete_records_entity"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
