package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/audit"
	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/internal/users"
	"github.com/omarashraf/dokkan-backend/pkg/auth"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	pkgerrors "github.com/omarashraf/dokkan-backend/pkg/errors"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Address{}, &models.Product{},
		&models.Order{}, &models.OrderLineItem{}, &models.ReturnOrder{},
		&models.EditRecord{}, &models.DeleteRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	auditSvc, err := audit.NewService(audit.NewRepository(db))
	if err != nil {
		t.Fatalf("audit service: %v", err)
	}
	svc, err := NewService(NewRepository(db), orders.NewRepository(db), users.NewRepository(db), auditSvc, testTxRunner{db: db})
	if err != nil {
		t.Fatalf("returns service: %v", err)
	}
	return svc, db
}

type fixture struct {
	user        models.User
	address     models.Address
	product     models.Product
	order       models.Order
	line        models.OrderLineItem
	transporter models.User
	admin       models.User
}

// seedDeliveredOrder builds a delivered two-unit order ready to return. The
// warranty window runs from createdAt.
func seedDeliveredOrder(t *testing.T, db *gorm.DB, createdAt time.Time, warrantyDays int) fixture {
	t.Helper()

	f := fixture{
		user: models.User{
			ID: uuid.New(), Name: "Laila Hassan",
			Email: uuid.NewString() + "@example.com", Phone: "+201000000001",
			Role: enums.RoleCustomer,
		},
		transporter: models.User{
			ID: uuid.New(), Name: "Courier",
			Email: uuid.NewString() + "@example.com", Phone: "+201000000002",
			Role: enums.RoleTransporter,
		},
		admin: models.User{
			ID: uuid.New(), Name: "Admin",
			Email: uuid.NewString() + "@example.com", Phone: "+201000000003",
			Role: enums.RoleAdmin,
		},
	}
	for _, u := range []*models.User{&f.user, &f.transporter, &f.admin} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	f.address = models.Address{ID: uuid.New(), UserID: &f.user.ID, Street: "5 Nile St", City: "Giza", Country: "Egypt"}
	if err := db.Create(&f.address).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}

	f.product = models.Product{
		ID: uuid.New(), Name: "Kettle", SKU: "SKU-" + uuid.NewString(),
		Quantity: 0, PriceCents: 20000,
	}
	if err := db.Create(&f.product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	deliveredAt := time.Now().UTC()
	f.order = models.Order{
		ID: uuid.New(), UserID: f.user.ID, AddressID: f.address.ID,
		PaymentMethod: enums.PaymentMethodCOD, Status: enums.OrderStatusDelivered,
		Currency: "EGP", TotalCents: 46000,
		CreatedAt: createdAt, DeliveredAt: &deliveredAt,
	}
	if err := db.Create(&f.order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	f.line = models.OrderLineItem{
		ID: uuid.New(), OrderID: f.order.ID, ProductID: f.product.ID,
		Name: f.product.Name, UnitPriceCents: 20000, Qty: 2, WarrantyDays: warrantyDays,
	}
	if err := db.Create(&f.line).Error; err != nil {
		t.Fatalf("seed line item: %v", err)
	}
	return f
}

func (f fixture) createInput(qty int) CreateInput {
	return CreateInput{
		UserID:          f.user.ID,
		OrderLineItemID: f.line.ID,
		AddressID:       f.address.ID,
		Qty:             qty,
		Reason:          "arrived damaged",
	}
}

func TestCreateReturnHappyPath(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)

	ret, err := svc.Create(context.Background(), f.createInput(1))
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	if ret.Status != enums.ReturnStatusProcessing {
		t.Fatalf("expected processing, got %s", ret.Status)
	}
	if ret.OrderID != f.order.ID || ret.Qty != 1 {
		t.Fatalf("unexpected return %+v", ret)
	}
}

func TestCreateReturnRejectsUndeliveredOrder(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)
	if err := db.Model(&models.Order{}).Where("id = ?", f.order.ID).
		Update("status", enums.OrderStatusOnTheWay).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}

	_, err := svc.Create(context.Background(), f.createInput(1))
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateReturnRejectsExpiredWarranty(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	// ordered 40 days ago, delivered only now; a 14-day warranty has lapsed
	created := time.Now().UTC().Add(-40 * 24 * time.Hour)
	f := seedDeliveredOrder(t, db, created, 14)

	_, err := svc.Create(context.Background(), f.createInput(1))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateReturnRejectsEmptyReason(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)

	input := f.createInput(1)
	input.Reason = "   "
	_, err := svc.Create(context.Background(), input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateReturnCapsAtRemainingQty(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)

	first, err := svc.Create(ctx, f.createInput(2))
	if err != nil {
		t.Fatalf("first return: %v", err)
	}

	_, err = svc.Create(ctx, f.createInput(1))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// cancelling the first request frees its units
	owner := auth.Principal{UserID: f.user.ID, Role: enums.RoleCustomer}
	if err := svc.Cancel(ctx, owner, first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(ctx, f.createInput(1)); err != nil {
		t.Fatalf("return after cancel: %v", err)
	}
}

func TestFulfillRestocksAndMarksLine(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)
	adminPrincipal := auth.Principal{UserID: f.admin.ID, Role: enums.RoleAdmin}

	ret, err := svc.Create(ctx, f.createInput(2))
	if err != nil {
		t.Fatalf("create return: %v", err)
	}

	// cannot fulfill before pickup is underway
	_, err = svc.Fulfill(ctx, adminPrincipal, ret.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	ret2, err := svc.AssignTransporter(ctx, adminPrincipal, ret.ID, f.transporter.ID)
	if err != nil {
		t.Fatalf("assign transporter: %v", err)
	}
	if ret2.Status != enums.ReturnStatusOnTheWay {
		t.Fatalf("expected on_the_way, got %s", ret2.Status)
	}

	// only the assigned transporter may complete the pickup
	stranger := models.User{ID: uuid.New(), Name: "Other", Email: uuid.NewString() + "@example.com", Phone: "+2", Role: enums.RoleTransporter}
	if err := db.Create(&stranger).Error; err != nil {
		t.Fatalf("seed stranger: %v", err)
	}
	_, err = svc.Fulfill(ctx, auth.Principal{UserID: stranger.ID, Role: enums.RoleTransporter}, ret.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	done, err := svc.Fulfill(ctx, auth.Principal{UserID: f.transporter.ID, Role: enums.RoleTransporter}, ret.ID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if done.Status != enums.ReturnStatusReturned || done.ReturnedAt == nil {
		t.Fatalf("expected returned, got %+v", done)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Quantity != 2 {
		t.Fatalf("expected restocked qty 2, got %d", product.Quantity)
	}

	var line models.OrderLineItem
	if err := db.First(&line, "id = ?", f.line.ID).Error; err != nil {
		t.Fatalf("load line: %v", err)
	}
	if line.PartiallyReturnedAt == nil {
		t.Fatalf("expected line item marked as returned")
	}

	// terminal: fulfilling twice is out of state and must not restock again
	_, err = svc.Fulfill(ctx, adminPrincipal, ret.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if err := db.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Quantity != 2 {
		t.Fatalf("expected quantity to hold at 2, got %d", product.Quantity)
	}
	// and so is cancelling
	err = svc.Cancel(ctx, auth.Principal{UserID: f.user.ID, Role: enums.RoleCustomer}, ret.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelRecordsDeletion(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)

	ret, err := svc.Create(ctx, f.createInput(1))
	if err != nil {
		t.Fatalf("create return: %v", err)
	}

	// strangers cannot cancel
	err = svc.Cancel(ctx, auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}, ret.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	owner := auth.Principal{UserID: f.user.ID, Role: enums.RoleCustomer}
	if err := svc.Cancel(ctx, owner, ret.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var stored models.ReturnOrder
	if err := db.First(&stored, "id = ?", ret.ID).Error; err != nil {
		t.Fatalf("load return: %v", err)
	}
	if stored.Status != enums.ReturnStatusDeleted || stored.DeletedAt == nil {
		t.Fatalf("expected soft-deleted return, got %+v", stored)
	}

	var deletions int64
	if err := db.Model(&models.DeleteRecord{}).
		Where("entity_type = ? AND entity_id = ?", enums.AuditEntityReturn, ret.ID).
		Count(&deletions).Error; err != nil {
		t.Fatalf("count deletions: %v", err)
	}
	if deletions != 1 {
		t.Fatalf("expected one delete record, got %d", deletions)
	}
}

func TestListMineReturnsOwnOnly(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	f := seedDeliveredOrder(t, db, time.Now().UTC(), 14)

	if _, err := svc.Create(ctx, f.createInput(1)); err != nil {
		t.Fatalf("create return: %v", err)
	}

	list, err := svc.ListMine(ctx, auth.Principal{UserID: f.user.ID, Role: enums.RoleCustomer}, pagination.Params{})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(list.Returns) != 1 {
		t.Fatalf("expected one return, got %d", len(list.Returns))
	}

	other, err := svc.ListMine(ctx, auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}, pagination.Params{})
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other.Returns) != 0 {
		t.Fatalf("expected no returns for stranger, got %d", len(other.Returns))
	}
}
