package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// Service records who changed what. History rows are written inside the same
// transaction as the change they describe; they are never updated or deleted.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEdit(ctx context.Context, input RecordEditInput) (*models.EditRecord, error)
	RecordDelete(ctx context.Context, input RecordDeleteInput) (*models.DeleteRecord, error)
	EditHistory(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.EditRecord, error)
	DeleteHistory(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.DeleteRecord, error)
}

type service struct {
	repo Repository
}

// RecordEditInput captures one field mutation. A nil EditorID marks a
// system-initiated change.
type RecordEditInput struct {
	EditorID   *uuid.UUID
	EntityType enums.AuditEntity
	EntityID   uuid.UUID
	Field      string
	OldValue   string
	NewValue   string
}

// RecordDeleteInput captures one soft delete.
type RecordDeleteInput struct {
	DeleterID  uuid.UUID
	EntityType enums.AuditEntity
	EntityID   uuid.UUID
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordEdit(ctx context.Context, input RecordEditInput) (*models.EditRecord, error) {
	if input.EntityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	if !input.EntityType.IsValid() {
		return nil, fmt.Errorf("invalid audit entity %q", input.EntityType)
	}
	if input.Field == "" {
		return nil, fmt.Errorf("field is required")
	}

	record := &models.EditRecord{
		EditorID:   input.EditorID,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Field:      input.Field,
		OldValue:   input.OldValue,
		NewValue:   input.NewValue,
	}

	if err := s.repo.CreateEdit(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) RecordDelete(ctx context.Context, input RecordDeleteInput) (*models.DeleteRecord, error) {
	if input.DeleterID == uuid.Nil {
		return nil, fmt.Errorf("deleter id is required")
	}
	if input.EntityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	if !input.EntityType.IsValid() {
		return nil, fmt.Errorf("invalid audit entity %q", input.EntityType)
	}

	record := &models.DeleteRecord{
		DeleterID:  input.DeleterID,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
	}

	if err := s.repo.CreateDelete(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) EditHistory(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.EditRecord, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	return s.repo.ListEditsByEntity(ctx, entityType, entityID)
}

func (s *service) DeleteHistory(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.DeleteRecord, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("entity id is required")
	}
	return s.repo.ListDeletesByEntity(ctx, entityType, entityID)
}
