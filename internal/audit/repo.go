package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// Repository manages persistence for the append-only history tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEdit(ctx context.Context, record *models.EditRecord) error
	CreateDelete(ctx context.Context, record *models.DeleteRecord) error
	ListEditsByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.EditRecord, error)
	ListDeletesByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.DeleteRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEdit(ctx context.Context, record *models.EditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CreateDelete(ctx context.Context, record *models.DeleteRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListEditsByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.EditRecord, error) {
	var records []models.EditRecord
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListDeletesByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.DeleteRecord, error) {
	var records []models.DeleteRecord
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
