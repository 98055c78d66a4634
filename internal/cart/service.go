package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/promo"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
)

// Service manages a user's cart. Reads are self-healing: lines whose product
// was removed from the catalog are dropped on the spot, and a promo that went
// inactive is detached, so a cart handed to checkout is always chargeable.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetForCheckout(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SetItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error)
	ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error)
	RemovePromo(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type productGetter interface {
	GetAvailable(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     Repository
	products productGetter
	promos   promo.Service
}

// NewService wires a cart service with its dependencies.
func NewService(repo Repository, products productGetter, promos promo.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product getter required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo service required")
	}
	return &service{repo: repo, products: products, promos: promos}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.heal(ctx, cart)
}

// GetForCheckout loads the cart for order placement. Unlike Get, it does not
// silently detach a promo that went inactive: the buyer applied that code
// expecting a discount, so checkout fails loudly instead of charging full
// price.
func (s *service) GetForCheckout(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart.PromoCodeID != nil && (cart.PromoCode == nil || !cart.PromoCode.Active || cart.PromoCode.DeletedAt != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "the promo code on this cart is no longer active")
	}
	return s.heal(ctx, cart)
}

func (s *service) SetItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	cart, err := s.repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	if qty == 0 {
		if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
		}
		return s.Get(ctx, userID)
	}

	product, err := s.products.GetAvailable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Quantity < qty {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d units of %s available", product.Quantity, product.Name)).
			WithDetails(map[string]any{"product_id": productID.String(), "available": product.Quantity})
	}

	if err := s.repo.UpsertItem(ctx, cart.ID, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	resolved, err := s.promos.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.SetPromo(ctx, cart.ID, &resolved.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply promo")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemovePromo(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.SetPromo(ctx, cart.ID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove promo")
	}
	return s.Get(ctx, userID)
}

// Clear empties the cart inside the caller's transaction. Checkout calls this
// after the order is created so the cart and the order commit together.
func (s *service) Clear(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	repo := s.repo.WithTx(tx)
	cart, err := repo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart items")
	}
	if err := repo.SetPromo(ctx, cart.ID, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart promo")
	}
	return nil
}

// heal drops lines that can no longer be purchased and detaches promos that
// went inactive since they were applied.
func (s *service) heal(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	var stale []uuid.UUID
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.Product == nil || item.Product.DeletedAt != nil || item.Qty <= 0 || item.Qty > item.Product.Quantity {
			stale = append(stale, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	cart.Items = kept

	if len(stale) > 0 {
		if err := s.repo.DeleteItems(ctx, cart.ID, stale); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop stale cart items")
		}
	}

	if cart.PromoCodeID != nil && (cart.PromoCode == nil || !cart.PromoCode.Active || cart.PromoCode.DeletedAt != nil) {
		if err := s.repo.SetPromo(ctx, cart.ID, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detach stale promo")
		}
		cart.PromoCodeID = nil
		cart.PromoCode = nil
	}

	return cart, nil
}
