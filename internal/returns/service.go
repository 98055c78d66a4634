package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/internal/inventory"
	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/internal/users"
	"github.com/omarashraf/dokkan-backend/pkg/auth"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
)

// Service drives the return lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ReturnOrder, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.ReturnOrder, error)
	ListMine(ctx context.Context, principal auth.Principal, params pagination.Params) (*ReturnList, error)
	ListAll(ctx context.Context, principal auth.Principal, params pagination.Params, filters ListFilters) (*ReturnList, error)
	Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID) error
	AssignTransporter(ctx context.Context, principal auth.Principal, returnID, transporterID uuid.UUID) (*models.ReturnOrder, error)
	Fulfill(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.ReturnOrder, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	orders orders.Repository
	users  users.Repository
	audit  audit.Service
	tx     txRunner
}

// NewService wires the return lifecycle service.
func NewService(repo Repository, orderRepo orders.Repository, userRepo users.Repository, auditSvc audit.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:   repo,
		orders: orderRepo,
		users:  userRepo,
		audit:  auditSvc,
		tx:     tx,
	}, nil
}

// Create opens a return request against one line item of a delivered order.
// The request must land inside the line's warranty window and cannot claim
// more units than the line still has unreturned.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.ReturnOrder, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.OrderLineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order line item id is required")
	}
	if input.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a return reason is required")
	}

	line, err := s.orders.GetLineItem(ctx, input.OrderLineItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order line item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load line item")
	}

	order, err := s.orders.GetByID(ctx, line.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusDelivered || order.DeliveredAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
	}

	deadline := order.CreatedAt.Add(time.Duration(line.WarrantyDays) * 24 * time.Hour)
	if time.Now().UTC().After(deadline) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warranty period has expired").
			WithDetails(map[string]any{"warranty_ended_at": deadline})
	}

	address, err := s.users.GetAddress(ctx, input.AddressID)
	if err != nil {
		return nil, err
	}
	if !address.IsStore() && *address.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another user")
	}

	claimed, err := s.repo.ReturnedQtyForLineItem(ctx, line.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum returned quantity")
	}
	if remaining := line.Qty - claimed; input.Qty > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds the returnable remainder").
			WithDetails(map[string]any{"remaining": remaining})
	}

	ret := &models.ReturnOrder{
		OrderID:         order.ID,
		OrderLineItemID: line.ID,
		UserID:          input.UserID,
		AddressID:       address.ID,
		Qty:             input.Qty,
		Reason:          strings.TrimSpace(input.Reason),
		Status:          enums.ReturnStatusProcessing,
	}

	// Re-checked inside the transaction so two concurrent requests cannot
	// both claim the last unit.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, terr := s.repo.WithTx(tx).ReturnedQtyForLineItem(ctx, line.ID)
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "sum returned quantity")
		}
		remaining := line.Qty - claimed
		if input.Qty > remaining {
			return pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds the returnable remainder").
				WithDetails(map[string]any{"remaining": remaining})
		}
		if terr := s.repo.WithTx(tx).Create(ctx, ret); terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "create return")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.ReturnOrder, error) {
	ret, err := s.loadReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(principal, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *service) ListMine(ctx context.Context, principal auth.Principal, params pagination.Params) (*ReturnList, error) {
	rets, next, err := s.repo.ListByUser(ctx, principal.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list returns")
	}
	return buildReturnList(rets, next), nil
}

func (s *service) ListAll(ctx context.Context, principal auth.Principal, params pagination.Params, filters ListFilters) (*ReturnList, error) {
	if !principal.Can(auth.CapViewDashboards) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view return dashboards")
	}
	// Transporters only ever see their own assignments.
	if principal.IsTransporter() {
		id := principal.UserID
		filters.TransporterID = &id
	}

	rets, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list returns")
	}
	return buildReturnList(rets, next), nil
}

// Cancel abandons an unfulfilled return. Fulfilled returns already restocked
// their units and cannot be taken back.
func (s *service) Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	ret, err := s.loadReturn(ctx, id)
	if err != nil {
		return err
	}
	if ret.UserID != principal.UserID && !principal.Can(auth.CapManageOrders) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this return")
	}
	if ret.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return can no longer be cancelled")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		rows, terr := s.repo.WithTx(tx).CancelOpen(ctx, id, now)
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "cancel return")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, id, ret.Status, "return can no longer be cancelled")
		}

		_, terr = s.audit.WithTx(tx).RecordDelete(ctx, audit.RecordDeleteInput{
			DeleterID:  principal.UserID,
			EntityType: enums.AuditEntityReturn,
			EntityID:   id,
		})
		return terr
	})
}

func (s *service) AssignTransporter(ctx context.Context, principal auth.Principal, returnID, transporterID uuid.UUID) (*models.ReturnOrder, error) {
	if !principal.Can(auth.CapAssignTransporter) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to assign transporters")
	}

	transporter, err := s.users.GetByID(ctx, transporterID)
	if err != nil {
		return nil, err
	}
	if transporter.Role != enums.RoleTransporter {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("user %s is not a transporter", transporterID))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, terr := s.repo.WithTx(tx).Transition(ctx, returnID,
			enums.ReturnStatusProcessing, enums.ReturnStatusOnTheWay,
			map[string]any{"transporter_id": transporterID})
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "assign transporter")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, returnID, enums.ReturnStatusProcessing, "return is not awaiting pickup")
		}

		_, terr = s.audit.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
			EditorID:   &principal.UserID,
			EntityType: enums.AuditEntityReturn,
			EntityID:   returnID,
			Field:      "status",
			OldValue:   enums.ReturnStatusProcessing.String(),
			NewValue:   enums.ReturnStatusOnTheWay.String(),
		})
		return terr
	})
	if err != nil {
		return nil, err
	}
	return s.loadReturn(ctx, returnID)
}

// Fulfill completes a pickup: the returned units go back into stock, the
// originating line item is marked, and the return becomes terminal. All of
// it commits or none of it does.
func (s *service) Fulfill(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.ReturnOrder, error) {
	if !principal.Can(auth.CapMarkDelivered) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to fulfill returns")
	}

	ret, err := s.loadReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.IsTransporter() {
		if ret.TransporterID == nil || *ret.TransporterID != principal.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return is assigned to a different transporter")
		}
	}

	line, err := s.orders.GetLineItem(ctx, ret.OrderLineItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load line item")
	}
	order, err := s.orders.GetByID(ctx, line.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "parent order is no longer delivered")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		rows, terr := s.repo.WithTx(tx).Transition(ctx, id,
			enums.ReturnStatusOnTheWay, enums.ReturnStatusReturned,
			map[string]any{"returned_at": now})
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "fulfill return")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, id, enums.ReturnStatusOnTheWay, "return is not on the way")
		}

		releases := []inventory.ReservationRequest{{ProductID: line.ProductID, Qty: ret.Qty}}
		if terr := inventory.Release(ctx, tx, s.audit, &principal.UserID, releases); terr != nil {
			return terr
		}
		if _, terr := s.orders.WithTx(tx).SetLineItemPartiallyReturned(ctx, line.ID, now); terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "mark line item returned")
		}

		_, terr = s.audit.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
			EditorID:   &principal.UserID,
			EntityType: enums.AuditEntityReturn,
			EntityID:   id,
			Field:      "status",
			OldValue:   enums.ReturnStatusOnTheWay.String(),
			NewValue:   enums.ReturnStatusReturned.String(),
		})
		return terr
	})
	if err != nil {
		return nil, err
	}
	return s.loadReturn(ctx, id)
}

func (s *service) authorizeRead(principal auth.Principal, ret *models.ReturnOrder) error {
	if ret.UserID == principal.UserID {
		return nil
	}
	if principal.IsTransporter() {
		if ret.TransporterID != nil && *ret.TransporterID == principal.UserID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "return is assigned to a different transporter")
	}
	if principal.Can(auth.CapViewDashboards) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this return")
}

// transitionFailure distinguishes a lost race from an out-of-state request
// after a guarded update matched no rows.
func (s *service) transitionFailure(ctx context.Context, tx *gorm.DB, id uuid.UUID, expected enums.ReturnStatus, stateMsg string) error {
	ret, err := s.repo.WithTx(tx).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
	}
	if ret.Status == expected && ret.DeletedAt == nil {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "return changed concurrently")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, stateMsg)
}

func (s *service) loadReturn(ctx context.Context, id uuid.UUID) (*models.ReturnOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id is required")
	}
	ret, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
	}
	return ret, nil
}

func buildReturnList(rets []models.ReturnOrder, next *pagination.Cursor) *ReturnList {
	list := &ReturnList{Returns: rets}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}
