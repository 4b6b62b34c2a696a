package checkout

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/present"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/money"
	"github.com/angelmondragon/storefront-client/pkg/validate"
	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// SessionReader is the slice of the auth session the orchestrator needs.
type SessionReader interface {
	IsAuthenticated() bool
}

// CartStore is the slice of the cart the orchestrator reads and clears.
type CartStore interface {
	Snapshot() cart.Snapshot
	Clear() cart.Snapshot
}

// OrderSubmitter posts orders to the remote service.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest, idempotencyKey string) (*gateway.Order, error)
}

type Params struct {
	Session   SessionReader
	Cart      CartStore
	Orders    OrderSubmitter
	Navigator present.Navigator
	Notifier  present.Notifier
	Logger    *logger.Logger
	Metrics   *metrics.ClientMetrics
	Validator *validate.Validator
	Formatter *money.Formatter
	Config    config.CheckoutConfig
	// NewKey mints idempotency keys; defaults to random UUIDs.
	NewKey func() string
}

// Orchestrator guards entry into checkout and hands out Flows.
type Orchestrator struct {
	session   SessionReader
	cart      CartStore
	orders    OrderSubmitter
	nav       present.Navigator
	notifier  present.Notifier
	logg      *logger.Logger
	metrics   *metrics.ClientMetrics
	validator *validate.Validator
	formatter *money.Formatter
	cfg       config.CheckoutConfig
	newKey    func() string
}

func NewOrchestrator(params Params) (*Orchestrator, error) {
	switch {
	case params.Session == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session required")
	case params.Cart == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout cart required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout order submitter required")
	}

	o := &Orchestrator{
		session:   params.Session,
		cart:      params.Cart,
		orders:    params.Orders,
		nav:       params.Navigator,
		notifier:  params.Notifier,
		logg:      params.Logger,
		metrics:   params.Metrics,
		validator: params.Validator,
		formatter: params.Formatter,
		cfg:       params.Config,
		newKey:    params.NewKey,
	}
	if o.logg == nil {
		o.logg = logger.Nop()
	}
	if o.validator == nil {
		o.validator = validate.New()
	}
	if o.formatter == nil {
		code := strings.TrimSpace(o.cfg.Currency)
		if code == "" {
			code = money.DefaultCurrency
		}
		f, err := money.NewFormatter(code, language.BrazilianPortuguese)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout currency")
		}
		o.formatter = f
	}
	if o.newKey == nil {
		o.newKey = uuid.NewString
	}
	if o.cfg.ConfirmationPath == "" {
		o.cfg.ConfirmationPath = present.PathOrders
	}
	return o, nil
}

// Enter starts a checkout. An anonymous shopper is sent to login with a
// return path back to checkout, and no draft is created. An empty cart is a
// precondition failure.
func (o *Orchestrator) Enter(ctx context.Context) (*Flow, error) {
	if !o.session.IsAuthenticated() {
		o.redirectToLogin()
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "log in to continue to checkout")
	}
	if o.cart.Snapshot().Empty() {
		o.notify(present.Warning("Your cart is empty."))
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "your cart is empty")
	}

	flow := &Flow{
		o: o,
		draft: Draft{
			Step:           enums.CheckoutStepAddressEntry,
			Address:        Address{Country: o.cfg.DefaultCountry},
			IdempotencyKey: o.newKey(),
		},
	}
	o.logg.Info(o.logg.WithStep(ctx, flow.draft.Step.String()), "checkout.entered")
	return flow, nil
}

// Summary prices the current cart for display.
func (o *Orchestrator) Summary() Summary {
	snap := o.cart.Snapshot()
	total := snap.Total()
	return Summary{
		Items:     snap.Items,
		Count:     snap.Count(),
		Total:     o.formatter.Round(total),
		Formatted: o.formatter.Format(total),
	}
}

func (o *Orchestrator) redirectToLogin() {
	if o.nav == nil {
		return
	}
	o.nav.Navigate(present.Navigation{Path: present.PathLogin, ReturnTo: present.PathCheckout})
}

func (o *Orchestrator) notify(n present.Notice) {
	if o.notifier != nil {
		o.notifier.Notify(n)
	}
}
