package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-client/api/controllers"
	"github.com/angelmondragon/storefront-client/internal/auth"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/orderbook"
	product "github.com/angelmondragon/storefront-client/internal/products"
	"github.com/angelmondragon/storefront-client/internal/users"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
	"github.com/angelmondragon/storefront-client/pkg/security"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "storefront-test", ExpirationMinutes: 30},
		DevServer: config.DevServerConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			AuthWindow:     time.Minute,
			AuthIPLimit:    100,
			AuthEmailLimit: 3,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	client := db.Wrap(conn)

	ctx := context.Background()
	userRepo := users.NewRepository(conn)
	productRepo := product.NewRepository(conn)
	orderRepo := orderbook.NewRepository(conn)
	require.NoError(t, userRepo.Migrate(ctx))
	require.NoError(t, productRepo.Migrate(ctx))
	require.NoError(t, orderRepo.Migrate(ctx))
	_, err = product.Seed(ctx, productRepo)
	require.NoError(t, err)

	hasher, err := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
	})
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, Hasher: hasher, JWTConfig: cfg.JWT})
	require.NoError(t, err)
	productSvc, err := product.NewService(productRepo)
	require.NoError(t, err)
	orderSvc, err := orderbook.NewService(client, orderRepo, productRepo, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	router := NewRouter(
		cfg,
		logger.Nop(),
		metrics.NewHTTPMetrics(reg, reg),
		map[string]controllers.Pinger{"db": client},
		pkgredis.NewMemory(),
		authSvc,
		productSvc,
		orderSvc,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestShopperJourneyThroughGateway(t *testing.T) {
	srv := newTestServer(t, testConfig())
	ctx := context.Background()

	token := ""
	client, err := gateway.NewClient(srv.URL+"/api", gateway.WithTokenSource(gateway.TokenSourceFunc(func() string { return token })))
	require.NoError(t, err)

	registered, err := client.Register(ctx, gateway.RegisterRequest{Name: "Ana Souza", Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, enums.RoleCustomer, registered.User.Role)

	_, err = client.Login(ctx, gateway.LoginRequest{Email: "ana@example.com", Password: "wrong-pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	loggedIn, err := client.Login(ctx, gateway.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	token = loggedIn.Token

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, me.ID)

	catalog, err := client.ListProducts(ctx, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 7, catalog.Pagination.Total)
	var jeans gateway.Product
	for _, p := range catalog.Items {
		if p.Slug == "calca-jeans-slim" {
			jeans = p
		}
	}
	require.NotEmpty(t, jeans.ID)

	found, err := client.SearchProducts(ctx, "jeans", 1, 10)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	req := gateway.CreateOrderRequest{
		Items: []gateway.OrderItemInput{{ProductID: jeans.ID, Quantity: 2}},
		ShippingAddress: gateway.ShippingAddress{
			Street: "Rua das Flores", Number: "10", Neighborhood: "Centro",
			City: "São Paulo", State: "SP", PostalCode: "01001000", Country: "Brasil",
		},
		PaymentMethod: enums.PaymentMethodPix,
	}
	first, err := client.CreateOrder(ctx, req, "checkout-key-1")
	require.NoError(t, err)
	replayed, err := client.CreateOrder(ctx, req, "checkout-key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, replayed.ID)
	assert.Equal(t, "379.8", first.Total.String())

	mine, err := client.MyOrders(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, first.OrderNumber, mine.Items[0].OrderNumber)

	fetched, err := client.GetOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, fetched.ID)

	token = ""
	_, err = client.MyOrders(ctx, 1, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginIsThrottledPerEmail(t *testing.T) {
	srv := newTestServer(t, testConfig())
	ctx := context.Background()
	client, err := gateway.NewClient(srv.URL + "/api")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Login(ctx, gateway.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "attempt %d: %v", i, err)
	}
	_, err = client.Login(ctx, gateway.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRateLimit))
}
