package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/internal/cart"
	"github.com/omarashraf/dokkan-backend/internal/inventory"
	"github.com/omarashraf/dokkan-backend/internal/pricing"
	"github.com/omarashraf/dokkan-backend/internal/users"
	"github.com/omarashraf/dokkan-backend/pkg/auth"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
	"github.com/omarashraf/dokkan-backend/pkg/paymob"
)

// Currency is the only currency the store charges in.
const Currency = "EGP"

const minWarrantyDays = 14

// Service drives the order lifecycle.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error)
	ListMine(ctx context.Context, principal auth.Principal, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, principal auth.Principal, params pagination.Params, filters ListFilters) (*OrderList, error)
	Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID) error
	AssignTransporter(ctx context.Context, principal auth.Principal, orderID, transporterID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// paymentGateway is the slice of the Paymob client checkout needs.
type paymentGateway interface {
	PrepareCardPayment(ctx context.Context, order paymob.PaymentOrder) (*paymob.CardPaymentIntent, error)
	PrepareWalletPayment(ctx context.Context, order paymob.PaymentOrder, identifier string) (*paymob.WalletPaymentIntent, error)
}

type service struct {
	repo    Repository
	carts   cart.Service
	users   users.Repository
	audit   audit.Service
	gateway paymentGateway
	fees    pricing.FeeSchedule
	tx      txRunner
}

// NewService wires the order lifecycle service. The gateway may be nil only
// when every order is cash on delivery (test setups); card and wallet
// checkouts fail without it.
func NewService(repo Repository, carts cart.Service, userRepo users.Repository, auditSvc audit.Service, gateway paymentGateway, fees pricing.FeeSchedule, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
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
		repo:    repo,
		carts:   carts,
		users:   userRepo,
		audit:   auditSvc,
		gateway: gateway,
		fees:    fees,
		tx:      tx,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.PaymentMethod == enums.PaymentMethodMobileWallet && strings.TrimSpace(input.WalletIdentifier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet identifier is required for mobile wallet payments")
	}
	if input.PaymentMethod.RequiresGateway() && s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment gateway not configured")
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	address, err := s.resolveAddress(ctx, input)
	if err != nil {
		return nil, err
	}

	userCart, err := s.carts.GetForCheckout(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var promoApplied *pricing.Promo
	if userCart.PromoCode != nil {
		promoApplied = &pricing.Promo{
			Percent:      userCart.PromoCode.Percent,
			MaxSaleCents: userCart.PromoCode.MaxSaleCents,
		}
	}

	lines := make([]pricing.Line, 0, len(userCart.Items))
	reservations := make([]inventory.ReservationRequest, 0, len(userCart.Items))
	items := make([]models.OrderLineItem, 0, len(userCart.Items))
	for _, cartItem := range userCart.Items {
		product := cartItem.Product
		warranty := product.WarrantyDays
		if warranty < minWarrantyDays {
			warranty = minWarrantyDays
		}
		lines = append(lines, pricing.Line{
			UnitPriceCents: product.PriceCents,
			SalePercent:    product.SalePercent,
			Qty:            cartItem.Qty,
		})
		reservations = append(reservations, inventory.ReservationRequest{
			ProductID: product.ID,
			Qty:       cartItem.Qty,
		})
		items = append(items, models.OrderLineItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			SalePercent:    product.SalePercent,
			Qty:            cartItem.Qty,
			WarrantyDays:   warranty,
		})
	}

	quote := pricing.Compute(lines, promoApplied, s.fees, input.DeliveryNeeded, input.PaymentMethod)

	status := enums.OrderStatusPaying
	if input.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.OrderStatusProcessing
	}

	order := &models.Order{
		UserID:         input.UserID,
		PromoCodeID:    userCart.PromoCodeID,
		AddressID:      address.ID,
		PaymentMethod:  input.PaymentMethod,
		Status:         status,
		Currency:       Currency,
		TotalCents:     quote.TotalCents,
		DeliveryNeeded: input.DeliveryNeeded,
		Items:          items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		open, terr := s.repo.WithTx(tx).HasOpenOrder(ctx, input.UserID)
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "check open orders")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already has an open order")
		}

		if terr := inventory.ReserveAll(ctx, tx, s.audit, &input.UserID, reservations); terr != nil {
			return terr
		}
		if terr := s.repo.WithTx(tx).Create(ctx, order); terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "create order")
		}
		return s.carts.Clear(ctx, tx, input.UserID)
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	if !input.PaymentMethod.RequiresGateway() {
		return result, nil
	}

	// The gateway is called after the commit. A failure here leaves the
	// order in Paying with its stock held; cancellation releases it.
	paymentOrder := buildPaymentOrder(order, user, address)
	switch input.PaymentMethod {
	case enums.PaymentMethodCreditCard:
		intent, gerr := s.gateway.PrepareCardPayment(ctx, paymentOrder)
		if gerr != nil {
			return nil, gerr
		}
		if serr := s.repo.SetGatewayOrderID(ctx, order.ID, intent.GatewayOrderID); serr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, serr, "store gateway order id")
		}
		order.GatewayOrderID = &intent.GatewayOrderID
		result.PaymentURL = intent.IframeURL
	case enums.PaymentMethodMobileWallet:
		intent, gerr := s.gateway.PrepareWalletPayment(ctx, paymentOrder, input.WalletIdentifier)
		if gerr != nil {
			return nil, gerr
		}
		if serr := s.repo.SetGatewayOrderID(ctx, order.ID, intent.GatewayOrderID); serr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, serr, "store gateway order id")
		}
		order.GatewayOrderID = &intent.GatewayOrderID
		result.PaymentURL = intent.RedirectURL
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(principal, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListMine(ctx context.Context, principal auth.Principal, params pagination.Params) (*OrderList, error) {
	orders, next, err := s.repo.ListByUser(ctx, principal.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildOrderList(orders, next), nil
}

func (s *service) ListAll(ctx context.Context, principal auth.Principal, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if !principal.Can(auth.CapViewDashboards) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view order dashboards")
	}
	// Transporters only ever see their own assignments.
	if principal.IsTransporter() {
		id := principal.UserID
		filters.TransporterID = &id
	}

	orders, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildOrderList(orders, next), nil
}

// Cancel releases every reserved unit and soft-deletes the order. Owners can
// cancel their own orders while still Paying or Processing; order managers
// can cancel anyone's.
func (s *service) Cancel(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.UserID != principal.UserID && !principal.Can(auth.CapManageOrders) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this order")
	}
	if order.Status != enums.OrderStatusPaying && order.Status != enums.OrderStatusProcessing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		rows, terr := s.repo.WithTx(tx).CancelOpen(ctx, id, now)
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "cancel order")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, id, order.Status, "order can no longer be cancelled")
		}

		releases := make([]inventory.ReservationRequest, 0, len(order.Items))
		for _, item := range order.Items {
			releases = append(releases, inventory.ReservationRequest{ProductID: item.ProductID, Qty: item.Qty})
		}
		if terr := inventory.Release(ctx, tx, s.audit, &principal.UserID, releases); terr != nil {
			return terr
		}

		_, terr = s.audit.WithTx(tx).RecordDelete(ctx, audit.RecordDeleteInput{
			DeleterID:  principal.UserID,
			EntityType: enums.AuditEntityOrder,
			EntityID:   id,
		})
		return terr
	})
}

func (s *service) AssignTransporter(ctx context.Context, principal auth.Principal, orderID, transporterID uuid.UUID) (*models.Order, error) {
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
		rows, terr := s.repo.WithTx(tx).Transition(ctx, orderID,
			enums.OrderStatusProcessing, enums.OrderStatusOnTheWay,
			map[string]any{"transporter_id": transporterID})
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "assign transporter")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, orderID, enums.OrderStatusProcessing, "order is not awaiting dispatch")
		}

		_, terr = s.audit.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
			EditorID:   &principal.UserID,
			EntityType: enums.AuditEntityOrder,
			EntityID:   orderID,
			Field:      "status",
			OldValue:   enums.OrderStatusProcessing.String(),
			NewValue:   enums.OrderStatusOnTheWay.String(),
		})
		return terr
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

func (s *service) MarkDelivered(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*models.Order, error) {
	if !principal.Can(auth.CapMarkDelivered) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to confirm deliveries")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if principal.IsTransporter() {
		if order.TransporterID == nil || *order.TransporterID != principal.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to a different transporter")
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		rows, terr := s.repo.WithTx(tx).Transition(ctx, orderID,
			enums.OrderStatusOnTheWay, enums.OrderStatusDelivered,
			map[string]any{"delivered_at": now})
		if terr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, terr, "mark delivered")
		}
		if rows == 0 {
			return s.transitionFailure(ctx, tx, orderID, enums.OrderStatusOnTheWay, "order is not on the way")
		}

		_, terr = s.audit.WithTx(tx).RecordEdit(ctx, audit.RecordEditInput{
			EditorID:   &principal.UserID,
			EntityType: enums.AuditEntityOrder,
			EntityID:   orderID,
			Field:      "status",
			OldValue:   enums.OrderStatusOnTheWay.String(),
			NewValue:   enums.OrderStatusDelivered.String(),
		})
		return terr
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

func (s *service) resolveAddress(ctx context.Context, input CheckoutInput) (*models.Address, error) {
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}

	address, err := s.users.GetAddress(ctx, input.AddressID)
	if err != nil {
		return nil, err
	}
	if address.IsStore() {
		if input.DeliveryNeeded {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require a customer address")
		}
		return address, nil
	}
	if *address.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another user")
	}
	return address, nil
}

func (s *service) authorizeRead(principal auth.Principal, order *models.Order) error {
	if order.UserID == principal.UserID {
		return nil
	}
	if principal.IsTransporter() {
		if order.TransporterID != nil && *order.TransporterID == principal.UserID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to a different transporter")
	}
	if principal.Can(auth.CapViewDashboards) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
}

// transitionFailure distinguishes a lost race from an out-of-state request
// after a guarded update matched no rows. If the order still reads as being
// in the expected status, a concurrent writer beat us and the caller may
// retry; otherwise the request itself was out of state.
func (s *service) transitionFailure(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, expected enums.OrderStatus, stateMsg string) error {
	order, err := s.repo.WithTx(tx).GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status == expected && order.DeletedAt == nil {
		return pkgerrors.New(pkgerrors.CodeConcurrency, "order changed concurrently")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, stateMsg)
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func buildOrderList(orders []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: orders}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

func buildPaymentOrder(order *models.Order, user *models.User, address *models.Address) paymob.PaymentOrder {
	items := make([]paymob.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, paymob.OrderItem{
			Name:        item.Name,
			AmountCents: item.EffectiveUnitCents(),
			Quantity:    item.Qty,
		})
	}

	first, last := splitName(user.Name)
	return paymob.PaymentOrder{
		AmountCents:    order.TotalCents,
		Currency:       order.Currency,
		DeliveryNeeded: order.DeliveryNeeded,
		Items:          items,
		Billing: paymob.BillingData{
			FirstName:   first,
			LastName:    last,
			Email:       user.Email,
			PhoneNumber: user.Phone,
			Apartment:   orNA(address.Apartment),
			Floor:       orNA(address.Floor),
			Street:      orNA(address.Street),
			Building:    orNA(address.Building),
			PostalCode:  orNA(address.PostalCode),
			City:        orNA(address.City),
			State:       orNA(address.State),
			Country:     orNA(address.Country),
		},
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "NA", "NA"
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], parts[len(parts)-1]
	}
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "NA"
	}
	return value
}
