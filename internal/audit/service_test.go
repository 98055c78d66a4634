package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

type fakeRepository struct {
	createEditFn   func(ctx context.Context, record *models.EditRecord) error
	createDeleteFn func(ctx context.Context, record *models.DeleteRecord) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) CreateEdit(ctx context.Context, record *models.EditRecord) error {
	if f.createEditFn != nil {
		return f.createEditFn(ctx, record)
	}
	return nil
}

func (f *fakeRepository) CreateDelete(ctx context.Context, record *models.DeleteRecord) error {
	if f.createDeleteFn != nil {
		return f.createDeleteFn(ctx, record)
	}
	return nil
}

func (f *fakeRepository) ListEditsByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.EditRecord, error) {
	return nil, nil
}

func (f *fakeRepository) ListDeletesByEntity(ctx context.Context, entityType enums.AuditEntity, entityID uuid.UUID) ([]models.DeleteRecord, error) {
	return nil, nil
}

func TestService_RecordEdit(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	editor := uuid.New()
	input := RecordEditInput{
		EditorID:   &editor,
		EntityType: enums.AuditEntityProduct,
		EntityID:   uuid.New(),
		Field:      "price_cents",
		OldValue:   "10000",
		NewValue:   "9000",
	}

	var created *models.EditRecord
	repo.createEditFn = func(ctx context.Context, record *models.EditRecord) error {
		created = record
		return nil
	}

	got, err := svc.RecordEdit(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordEdit error: %v", err)
	}
	if created == nil {
		t.Fatal("expected edit record to be created")
	}
	if created.EntityID != input.EntityID || created.Field != input.Field {
		t.Fatalf("unexpected edit record data: %+v", created)
	}
	if created.OldValue != "10000" || created.NewValue != "9000" {
		t.Fatalf("value snapshot mismatch: %+v", created)
	}
	if got != created {
		t.Fatalf("service should return created record")
	}
}

func TestService_RecordEditValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordEditInput
	}{
		{
			name: "missing entity id",
			input: RecordEditInput{
				EntityType: enums.AuditEntityProduct,
				Field:      "name",
			},
		},
		{
			name: "invalid entity type",
			input: RecordEditInput{
				EntityType: enums.AuditEntity("warehouse"),
				EntityID:   uuid.New(),
				Field:      "name",
			},
		},
		{
			name: "missing field",
			input: RecordEditInput{
				EntityType: enums.AuditEntityProduct,
				EntityID:   uuid.New(),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordEdit(context.Background(), tc.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestService_RecordDeletePropagatesRepoError(t *testing.T) {
	repoErr := errors.New("insert failed")
	repo := &fakeRepository{
		createDeleteFn: func(ctx context.Context, record *models.DeleteRecord) error {
			return repoErr
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.RecordDelete(context.Background(), RecordDeleteInput{
		DeleterID:  uuid.New(),
		EntityType: enums.AuditEntityOrder,
		EntityID:   uuid.New(),
	})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}
