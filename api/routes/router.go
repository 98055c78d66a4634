package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarashraf/dokkan-backend/api/controllers"
	"github.com/omarashraf/dokkan-backend/api/middleware"
	"github.com/omarashraf/dokkan-backend/internal/cart"
	"github.com/omarashraf/dokkan-backend/internal/orders"
	"github.com/omarashraf/dokkan-backend/internal/promo"
	"github.com/omarashraf/dokkan-backend/internal/returns"
	"github.com/omarashraf/dokkan-backend/pkg/auth"
	"github.com/omarashraf/dokkan-backend/pkg/config"
	"github.com/omarashraf/dokkan-backend/pkg/db"
	"github.com/omarashraf/dokkan-backend/pkg/logger"
	"github.com/omarashraf/dokkan-backend/pkg/metrics"
	pkgredis "github.com/omarashraf/dokkan-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Cart     cart.Service
	Orders   orders.Service
	Returns  returns.Service
	Promos   promo.Service
	Registry *prometheus.Registry
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	registry := d.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	httpMetrics := metrics.NewHTTPMetrics(registry)

	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, d.DB, redisPinger(d.Redis)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Config.JWT, d.Logger))
		r.Use(middleware.Idempotency(idempotencyStore(d.Redis), d.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.Cart, d.Logger))
			r.Put("/items", controllers.CartSetItem(d.Cart, d.Logger))
			r.Post("/promo", controllers.CartApplyPromo(d.Cart, d.Logger))
			r.Delete("/promo", controllers.CartRemovePromo(d.Cart, d.Logger))
		})

		r.Post("/checkout", controllers.Checkout(d.Orders, d.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(d.Orders, d.Logger))
			r.Get("/{orderID}", controllers.OrderDetail(d.Orders, d.Logger))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(d.Orders, d.Logger))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.ReturnCreate(d.Returns, d.Logger))
			r.Get("/", controllers.ReturnList(d.Returns, d.Logger))
			r.Get("/{returnID}", controllers.ReturnDetail(d.Returns, d.Logger))
			r.Post("/{returnID}/cancel", controllers.ReturnCancel(d.Returns, d.Logger))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.RequireCapability(auth.CapViewDashboards, d.Logger))
				r.Get("/", controllers.AdminOrderList(d.Orders, d.Logger))
				r.With(middleware.RequireCapability(auth.CapAssignTransporter, d.Logger)).
					Post("/{orderID}/assign", controllers.AdminOrderAssign(d.Orders, d.Logger))
				r.With(middleware.RequireCapability(auth.CapMarkDelivered, d.Logger)).
					Post("/{orderID}/deliver", controllers.AdminOrderDeliver(d.Orders, d.Logger))
			})

			r.Route("/returns", func(r chi.Router) {
				r.Use(middleware.RequireCapability(auth.CapViewDashboards, d.Logger))
				r.Get("/", controllers.AdminReturnList(d.Returns, d.Logger))
				r.With(middleware.RequireCapability(auth.CapAssignTransporter, d.Logger)).
					Post("/{returnID}/assign", controllers.AdminReturnAssign(d.Returns, d.Logger))
				r.With(middleware.RequireCapability(auth.CapMarkDelivered, d.Logger)).
					Post("/{returnID}/fulfill", controllers.AdminReturnFulfill(d.Returns, d.Logger))
			})

			r.Route("/promos", func(r chi.Router) {
				r.Use(middleware.RequireCapability(auth.CapManagePromos, d.Logger))
				r.Get("/", controllers.AdminPromoList(d.Promos, d.Logger))
				r.Post("/", controllers.AdminPromoCreate(d.Promos, d.Logger))
				r.Patch("/{promoID}/active", controllers.AdminPromoSetActive(d.Promos, d.Logger))
				r.Delete("/{promoID}", controllers.AdminPromoDelete(d.Promos, d.Logger))
			})
		})
	})

	return r
}

// idempotencyStore avoids handing a typed nil pointer to the middleware.
func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

func redisPinger(client *pkgredis.Client) pkgredis.Pinger {
	if client == nil {
		return nil
	}
	return client
}
