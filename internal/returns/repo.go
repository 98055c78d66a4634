package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
)

// Repository persists return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.ReturnOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnOrder, error)
	ReturnedQtyForLineItem(ctx context.Context, lineItemID uuid.UUID) (int, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.ReturnStatus, updates map[string]any) (int64, error)
	CancelOpen(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReturnOrder, *pagination.Cursor, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.ReturnOrder, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.ReturnOrder) error {
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReturnOrder, error) {
	var ret models.ReturnOrder
	err := r.db.WithContext(ctx).
		Preload("OrderLineItem").
		Preload("Address").
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// ReturnedQtyForLineItem sums the units already claimed by live return
// requests against one line item, whatever their current status.
func (r *repository) ReturnedQtyForLineItem(ctx context.Context, lineItemID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ReturnOrder{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("order_line_item_id = ? AND deleted_at IS NULL", lineItemID).
		Scan(&total).Error
	return int(total), err
}

// Transition moves a return from one status to another with a guarded
// update. Zero rows affected means the return was not in the expected
// status when the update ran.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.ReturnStatus, updates map[string]any) (int64, error) {
	fields := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		fields[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.ReturnOrder{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", id, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// CancelOpen soft-deletes a return that has not been fulfilled yet.
func (r *repository) CancelOpen(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnOrder{}).
		Where("id = ? AND status IN ? AND deleted_at IS NULL", id,
			[]enums.ReturnStatus{enums.ReturnStatusProcessing, enums.ReturnStatusOnTheWay}).
		Updates(map[string]any{
			"status":     enums.ReturnStatusDeleted,
			"deleted_at": at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReturnOrder, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ReturnOrder{}).
		Preload("OrderLineItem").
		Where("user_id = ?", userID)
	return r.page(query, params)
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.ReturnOrder, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.ReturnOrder{}).Preload("OrderLineItem")
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.TransporterID != nil {
		query = query.Where("transporter_id = ?", *filters.TransporterID)
	}
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) ([]models.ReturnOrder, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rets []models.ReturnOrder
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rets).Error; err != nil {
		return nil, nil, err
	}

	if len(rets) > normalized {
		next := rets[normalized]
		rets = rets[:normalized]
		return rets, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rets, nil, nil
}
