package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/internal/promo"
	"github.com/omarashraf/dokkan-backend/internal/returns"
	pkgauth "github.com/omarashraf/dokkan-backend/pkg/auth"
	"github.com/omarashraf/dokkan-backend/pkg/config"
	"github.com/omarashraf/dokkan-backend/pkg/db/models"
	"github.com/omarashraf/dokkan-backend/pkg/enums"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
	"github.com/omarashraf/dokkan-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

func (stubCartService) GetForCheckout(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

func (stubCartService) SetItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	return &models.Cart{UserID: userID}, nil
}

func (stubCartService) ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) RemovePromo(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	panic("unimplemented")
}

func (stubCartService) Clear(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	panic("unimplemented")
}

type stubOrdersService struct{}

func (stubOrdersService) Checkout(ctx context.Context, input orders.CheckoutInput) (*orders.CheckoutResult, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, principal pkgauth.Principal, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id}, nil
}

func (stubOrdersService) ListMine(ctx context.Context, principal pkgauth.Principal, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrdersService) ListAll(ctx context.Context, principal pkgauth.Principal, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, principal pkgauth.Principal, id uuid.UUID) error {
	return nil
}

func (stubOrdersService) AssignTransporter(ctx context.Context, principal pkgauth.Principal, orderID, transporterID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) MarkDelivered(ctx context.Context, principal pkgauth.Principal, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

type stubReturnsService struct{}

func (stubReturnsService) Create(ctx context.Context, input returns.CreateInput) (*models.ReturnOrder, error) {
	panic("unimplemented")
}

func (stubReturnsService) Get(ctx context.Context, principal pkgauth.Principal, id uuid.UUID) (*models.ReturnOrder, error) {
	return &models.ReturnOrder{ID: id}, nil
}

func (stubReturnsService) ListMine(ctx context.Context, principal pkgauth.Principal, params pagination.Params) (*returns.ReturnList, error) {
	return &returns.ReturnList{}, nil
}

func (stubReturnsService) ListAll(ctx context.Context, principal pkgauth.Principal, params pagination.Params, filters returns.ListFilters) (*returns.ReturnList, error) {
	return &returns.ReturnList{}, nil
}

func (stubReturnsService) Cancel(ctx context.Context, principal pkgauth.Principal, id uuid.UUID) error {
	return nil
}

func (stubReturnsService) AssignTransporter(ctx context.Context, principal pkgauth.Principal, returnID, transporterID uuid.UUID) (*models.ReturnOrder, error) {
	return &models.ReturnOrder{ID: returnID}, nil
}

func (stubReturnsService) Fulfill(ctx context.Context, principal pkgauth.Principal, id uuid.UUID) (*models.ReturnOrder, error) {
	return &models.ReturnOrder{ID: id}, nil
}

type stubPromoService struct{}

func (stubPromoService) Create(ctx context.Context, input promo.CreateInput) (*models.PromoCode, error) {
	panic("unimplemented")
}

func (stubPromoService) Resolve(ctx context.Context, code string) (*models.PromoCode, error) {
	panic("unimplemented")
}

func (stubPromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	return nil, nil
}

func (stubPromoService) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*models.PromoCode, error) {
	panic("unimplemented")
}

func (stubPromoService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080", LogLevel: "debug"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "dokkan-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:  cfg,
		Logger:  logg,
		DB:      stubPinger{},
		Redis:   nil,
		Cart:    stubCartService{},
		Orders:  stubOrdersService{},
		Returns: stubReturnsService{},
		Promos:  stubPromoService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestProtectedGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGroupRequiresCapability(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/promos/", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/promos/", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestTransporterCapabilitySplit(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.RoleTransporter)
	orderID := uuid.NewString()

	dashboard := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/", nil)
	dashboard.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, dashboard)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected transporter dashboard access, got %d", resp.Code)
	}

	assign := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID+"/assign", nil)
	assign.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, assign)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for transporter assign, got %d", resp.Code)
	}

	deliver := httptest.NewRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID+"/deliver", nil)
	deliver.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, deliver)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected transporter deliver access, got %d", resp.Code)
	}
}
