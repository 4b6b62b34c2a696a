package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/storefront-client/api/controllers"
	"github.com/angelmondragon/storefront-client/api/middleware"
	"github.com/angelmondragon/storefront-client/internal/auth"
	"github.com/angelmondragon/storefront-client/internal/orderbook"
	product "github.com/angelmondragon/storefront-client/internal/products"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
)

// Store is the keyed storage the router needs for idempotency replays and
// auth throttling; *redis.Client and *redis.Memory both satisfy it.
type Store interface {
	pkgredis.IdempotencyStore
	pkgredis.CounterStore
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics *metrics.HTTPMetrics,
	readiness map[string]controllers.Pinger,
	store Store,
	authService auth.Service,
	productService product.Service,
	orderService orderbook.Service,
) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.DevServer.AllowedOrigins),
	)

	loginThrottle := middleware.ThrottleFor("login", cfg.DevServer)
	registerThrottle := middleware.ThrottleFor("register", cfg.DevServer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(loginThrottle.Middleware(store, logg)).
			Post("/auth/login", controllers.AuthLogin(authService, logg))
		r.With(registerThrottle.Middleware(store, logg), middleware.Idempotency(store, logg)).
			Post("/auth/register", controllers.AuthRegister(authService, logg))

		r.Get("/products", controllers.ProductList(productService, logg))
		r.Get("/products/search", controllers.ProductSearch(productService, logg))
		r.Get("/products/{productId}", controllers.ProductGet(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/auth/me", controllers.AuthMe(authService, logg))
			r.With(
				middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin),
				middleware.Idempotency(store, logg),
			).Post("/orders", controllers.OrderCreate(orderService, logg))
			r.Get("/orders/my-orders", controllers.OrderListMine(orderService, logg))
			r.Get("/orders/{orderId}", controllers.OrderGet(orderService, logg))
		})
	})

	return r
}
