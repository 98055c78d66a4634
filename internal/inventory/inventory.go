package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one product.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// ReservationResult reports the outcome for one request. Reason is set only
// when the reservation failed.
type ReservationResult struct {
	ProductID uuid.UUID
	Qty       int
	Reserved  bool
	Reason    string
}

// Reserve decrements stock for each request with a guarded update. The guard
// rejects the decrement when the product is missing, soft-deleted, or short
// on stock, so concurrent checkouts can never drive quantity negative. Every
// applied decrement is recorded as a quantity edit in the same transaction.
// The caller owns the transaction; on any failed reservation it should roll
// back.
func Reserve(ctx context.Context, tx *gorm.DB, audits audit.Service, actorID *uuid.UUID, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory reserve requires a transaction")
	}
	if audits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory reserve requires an audit recorder")
	}

	results := make([]ReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d for product %s", req.Qty, req.ProductID))
		}

		res := tx.WithContext(ctx).Exec(
			"UPDATE products SET quantity = quantity - ? WHERE id = ? AND deleted_at IS NULL AND quantity >= ?",
			req.Qty, req.ProductID, req.Qty,
		)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserve stock")
		}

		result := ReservationResult{ProductID: req.ProductID, Qty: req.Qty}
		if res.RowsAffected == 0 {
			reason, probeErr := failureReason(ctx, tx, req.ProductID)
			if probeErr != nil {
				return nil, probeErr
			}
			result.Reason = reason
		} else {
			result.Reserved = true
			if err := recordQuantityEdit(ctx, tx, audits, actorID, req.ProductID, req.Qty); err != nil {
				return nil, err
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// failureReason tells a missing or soft-deleted product apart from one that
// is simply short on stock.
func failureReason(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (string, error) {
	var count int64
	res := tx.WithContext(ctx).Raw(
		"SELECT COUNT(*) FROM products WHERE id = ? AND deleted_at IS NULL",
		productID,
	).Scan(&count)
	if res.Error != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "probe product availability")
	}
	if count == 0 {
		return "product unavailable", nil
	}
	return "insufficient stock", nil
}

// recordQuantityEdit appends the before/after quantity for one applied stock
// change. delta is negative for restocks.
func recordQuantityEdit(ctx context.Context, tx *gorm.DB, audits audit.Service, actorID *uuid.UUID, productID uuid.UUID, delta int) error {
	var newQty int
	res := tx.WithContext(ctx).Raw(
		"SELECT quantity FROM products WHERE id = ?",
		productID,
	).Scan(&newQty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "read adjusted quantity")
	}

	_, err := audits.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
		EditorID:   actorID,
		EntityType: enums.AuditEntityProduct,
		EntityID:   productID,
		Field:      "quantity",
		OldValue:   strconv.Itoa(newQty + delta),
		NewValue:   strconv.Itoa(newQty),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record quantity edit")
	}
	return nil
}

// ReserveAll reserves every request or fails with a stock error listing the
// products that could not be reserved.
func ReserveAll(ctx context.Context, tx *gorm.DB, audits audit.Service, actorID *uuid.UUID, requests []ReservationRequest) error {
	results, err := Reserve(ctx, tx, audits, actorID, requests)
	if err != nil {
		return err
	}

	var failed []map[string]any
	for _, result := range results {
		if result.Reserved {
			continue
		}
		failed = append(failed, map[string]any{
			"product_id": result.ProductID.String(),
			"qty":        result.Qty,
			"reason":     result.Reason,
		})
	}
	if len(failed) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "one or more products are out of stock").
			WithDetails(map[string]any{"items": failed})
	}
	return nil
}

// Release returns qty units of each product to stock. Used when an order is
// cancelled before delivery and when a return is fulfilled. Soft-deleted
// products still take the restock so their counters stay truthful. Each
// restock is recorded as a quantity edit in the same transaction.
func Release(ctx context.Context, tx *gorm.DB, audits audit.Service, actorID *uuid.UUID, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory release requires a transaction")
	}
	if audits == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory release requires an audit recorder")
	}

	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d for product %s", req.Qty, req.ProductID))
		}

		res := tx.WithContext(ctx).Exec(
			"UPDATE products SET quantity = quantity + ? WHERE id = ?",
			req.Qty, req.ProductID,
		)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", req.ProductID))
		}
		if err := recordQuantityEdit(ctx, tx, audits, actorID, req.ProductID, -req.Qty); err != nil {
			return err
		}
	}
	return nil
}
