package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/checkout"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/internal/present"
	"github.com/angelmondragon/storefront-client/internal/session"
	"github.com/angelmondragon/storefront-client/internal/storage"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
)

// Params configures a Container. Store and HTTPClient override the backends
// selected from Config.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Navigator  present.Navigator
	Notifier   present.Notifier
	Registry   *prometheus.Registry
	Store      storage.Store
	HTTPClient *http.Client
}

// Container holds the shopper-side stores wired to one another.
type Container struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.ClientMetrics
	Gateway   *gateway.Client
	Persister *storage.Persister
	Session   *session.Store
	Cart      *cart.Store
	Checkout  *checkout.Orchestrator
	Orders    orders.Service

	store     storage.Store
	closeOnce sync.Once
	closeErr  error
}

// New builds every store and the gateway. Call Start to hydrate persisted
// state and Close to flush pending writes.
func New(ctx context.Context, p Params) (*Container, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Container{
		Config:   p.Config,
		Logger:   logg,
		Registry: reg,
		Metrics:  metrics.NewClientMetrics(reg),
	}

	store := p.Store
	if store == nil {
		var err error
		if store, err = openStore(ctx, p.Config, logg); err != nil {
			return nil, err
		}
	}
	c.store = store

	persister, err := storage.NewPersister(storage.PersisterParams{
		Store:      store,
		Logger:     logg,
		Metrics:    c.Metrics,
		Migrations: map[string]storage.Migration{storage.KeyCart: cart.MigrateLegacy},
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	c.Persister = persister

	opts := []gateway.Option{
		gateway.WithTimeout(p.Config.API.Timeout),
		gateway.WithTokenSource(gateway.TokenSourceFunc(c.token)),
		gateway.WithLogger(logg),
		gateway.WithMetrics(c.Metrics),
		gateway.WithNavigator(p.Navigator),
		gateway.WithNotifier(p.Notifier),
		gateway.WithLoginPath(p.Config.API.LoginPath),
	}
	if p.HTTPClient != nil {
		opts = append(opts, gateway.WithHTTPClient(p.HTTPClient))
	}
	if c.Gateway, err = gateway.NewClient(p.Config.API.BaseURL, opts...); err != nil {
		return nil, c.abort(err)
	}

	if c.Session, err = session.NewStore(session.Params{
		Gateway:      c.Gateway,
		Persister:    persister,
		Logger:       logg,
		ExpiryLeeway: p.Config.Session.ExpiryLeeway,
	}); err != nil {
		return nil, c.abort(err)
	}
	c.Gateway.OnUnauthorized(c.Session.Logout)

	if c.Cart, err = cart.NewStore(cart.Params{Persister: persister, Logger: logg}); err != nil {
		return nil, c.abort(err)
	}
	if c.Orders, err = orders.NewService(c.Gateway, c.Session, logg); err != nil {
		return nil, c.abort(err)
	}
	if c.Checkout, err = checkout.NewOrchestrator(checkout.Params{
		Session:   c.Session,
		Cart:      c.Cart,
		Orders:    c.Gateway,
		Navigator: p.Navigator,
		Notifier:  p.Notifier,
		Logger:    logg,
		Metrics:   c.Metrics,
		Config:    p.Config.Checkout,
	}); err != nil {
		return nil, c.abort(err)
	}
	return c, nil
}

// Start hydrates the session and the cart, then confirms a restored token.
// A rejected token leaves the shopper anonymous without failing startup.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Session.Hydrate(ctx); err != nil {
		return err
	}
	if err := c.Cart.Hydrate(ctx); err != nil {
		return err
	}
	if c.Session.IsAuthenticated() {
		if err := c.Session.CheckAuth(ctx); err != nil {
			c.Logger.Warn(c.Logger.WithField(ctx, "error", err.Error()), "app.session_rejected")
		}
	}
	return nil
}

// Close stops the order cache subscription, drains pending writes and closes
// the storage backend. It is safe to call more than once.
func (c *Container) Close() error {
	c.closeOnce.Do(func() {
		if c.Orders != nil {
			c.Orders.Close()
		}
		var err error
		if c.Persister != nil {
			err = multierr.Append(err, c.Persister.Close())
		}
		if c.store != nil {
			err = multierr.Append(err, c.store.Close())
		}
		c.closeErr = err
	})
	return c.closeErr
}

func (c *Container) abort(err error) error {
	return multierr.Append(err, c.Close())
}

func (c *Container) token() string {
	if c.Session == nil {
		return ""
	}
	return c.Session.Token()
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Store, error) {
	driver := strings.ToLower(cfg.Storage.Driver)
	switch driver {
	case config.StorageDriverMemory:
		return storage.NewMemoryStore(), nil
	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		dbCfg := cfg.DB
		if dbCfg.DSN == "" && driver == config.StorageDriverSQLite {
			dbCfg.DSN = cfg.Storage.Path
		}
		client, err := db.New(ctx, driver, dbCfg, logg)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", driver, err)
		}
		store, err := storage.NewGormStore(ctx, client, cfg.Storage.Namespace)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	case config.StorageDriverRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		store, err := storage.NewRedisStore(client, cfg.Storage.Namespace, cfg.Redis.TTL)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}
