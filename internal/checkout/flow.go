package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/observe"
	"github.com/angelmondragon/storefront-client/internal/present"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/validate"
	"github.com/shopspring/decimal"
)

// Address is the shipping form. Complement is optional; Country defaults from
// configuration.
type Address struct {
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country" validate:"required"`
}

// Payment is the payment form. Card fields are only required, and only
// checked for presence, when paying by card.
type Payment struct {
	Method     enums.PaymentMethod `json:"method" validate:"required,oneof=credit_card pix boleto"`
	CardNumber string              `json:"cardNumber" validate:"required_if=Method credit_card"`
	CardName   string              `json:"cardName" validate:"required_if=Method credit_card"`
	CardExpiry string              `json:"cardExpiry" validate:"required_if=Method credit_card"`
	CardCVV    string              `json:"cardCvv" validate:"required_if=Method credit_card"`
}

// Draft is the in-progress checkout. It lives only as long as its Flow.
type Draft struct {
	Step           enums.CheckoutStep
	Address        Address
	Payment        Payment
	IdempotencyKey string
	LastError      error
	Order          *gateway.Order
}

// Summary is the priced view of the cart shown beside the checkout steps.
type Summary struct {
	Items     []cart.Item
	Count     int
	Total     decimal.Decimal
	Formatted string
}

// Flow walks one draft through address, payment and submission.
type Flow struct {
	o *Orchestrator

	mu        sync.Mutex
	emitMu    sync.Mutex
	draft     Draft
	discarded bool

	hub observe.Hub[Draft]
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Step is shorthand for Draft().Step.
func (f *Flow) Step() enums.CheckoutStep {
	return f.Draft().Step
}

// Subscribe registers fn for every step change, including the transient
// Failed step reported before control returns to payment entry.
func (f *Flow) Subscribe(fn func(Draft)) (unsubscribe func()) {
	return f.hub.Subscribe(fn)
}

// SubmitAddress validates the shipping form. Valid input advances to payment
// entry; invalid input keeps the draft on address entry and reports per-field
// problems. The entered values are kept either way.
func (f *Flow) SubmitAddress(addr Address) validate.FieldErrors {
	addr = f.normalizeAddress(addr)
	problems := f.o.validator.Struct(addr)
	if msg := helpers.PostalCodeProblem(addr.PostalCode, f.o.cfg.PostalCodeMinLen); msg != "" {
		if problems == nil {
			problems = validate.FieldErrors{}
		}
		problems["postalCode"] = msg
	}

	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return validate.FieldErrors{"_": "checkout was closed"}
	}
	switch f.draft.Step {
	case enums.CheckoutStepAddressEntry, enums.CheckoutStepPaymentEntry, enums.CheckoutStepFailed:
	default:
		f.mu.Unlock()
		return validate.FieldErrors{"_": "the address can no longer be changed"}
	}

	f.draft.Address = addr
	if !problems.Empty() {
		f.draft.Step = enums.CheckoutStepAddressEntry
		f.commitLocked()
		return problems
	}
	f.draft.Step = enums.CheckoutStepPaymentEntry
	f.draft.LastError = nil
	f.commitLocked()
	return nil
}

// SubmitPayment validates the payment form and, if it passes, submits the
// order built from the current cart. On success the cart is cleared and the
// draft completes. On failure the draft returns to payment entry with the cart
// untouched, so the shopper can retry with the same idempotency key.
func (f *Flow) SubmitPayment(ctx context.Context, p Payment) (*gateway.Order, error) {
	o := f.o
	p.CardNumber = helpers.DigitsOnly(p.CardNumber)
	p.CardName = strings.TrimSpace(p.CardName)
	p.CardExpiry = strings.TrimSpace(p.CardExpiry)
	p.CardCVV = strings.TrimSpace(p.CardCVV)

	f.mu.Lock()
	if err := f.acceptPaymentLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.draft.Payment = p
	if problems := o.validator.Struct(p); !problems.Empty() {
		f.mu.Unlock()
		return nil, problems.Err()
	}

	if !o.session.IsAuthenticated() {
		f.mu.Unlock()
		o.redirectToLogin()
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "log in to continue to checkout")
	}

	req, err := helpers.BuildOrderRequest(o.cart.Snapshot(), f.shippingAddressLocked(), p.Method)
	if err != nil {
		f.draft.LastError = err
		f.commitLocked()
		o.notify(present.Warning(pkgerrors.As(err).UserMessage()))
		return nil, err
	}

	key := f.draft.IdempotencyKey
	f.draft.Step = enums.CheckoutStepSubmitting
	f.draft.LastError = nil
	f.commitLocked()

	logCtx := o.logg.WithFields(o.logg.WithStep(ctx, enums.CheckoutStepSubmitting.String()), map[string]any{
		"idempotency_key": key,
		"items":           len(req.Items),
	})
	order, err := o.orders.CreateOrder(ctx, req, key)

	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		if err == nil {
			// The order exists server side even though nobody is waiting for it.
			o.cart.Clear()
			o.logg.Info(logCtx, "checkout.completed_after_discard")
		}
		return order, err
	}

	if err != nil {
		f.draft.LastError = err
		f.draft.Step = enums.CheckoutStepFailed
		f.commitLocked()

		f.mu.Lock()
		if f.draft.Step == enums.CheckoutStepFailed {
			f.draft.Step = enums.CheckoutStepPaymentEntry
			f.commitLocked()
		} else {
			f.mu.Unlock()
		}

		o.metrics.IncCheckout("failed")
		o.logg.Warn(o.logg.WithField(logCtx, "error", err.Error()), "checkout.submit_failed")
		if !gateway.Surfaced(err) {
			o.notify(present.Error(userMessage(err)))
		}
		return nil, err
	}

	f.draft.Step = enums.CheckoutStepCompleted
	f.draft.Order = order
	f.commitLocked()

	o.cart.Clear()
	o.metrics.IncCheckout("completed")
	o.logg.Info(o.logg.WithField(logCtx, "order_id", order.ID), "checkout.completed")
	o.notify(present.Success("Order " + order.OrderNumber + " placed."))
	if o.nav != nil {
		o.nav.Navigate(present.Navigation{Path: o.cfg.ConfirmationPath})
	}
	return order, nil
}

func (f *Flow) acceptPaymentLocked() error {
	if f.discarded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout was closed")
	}
	switch f.draft.Step {
	case enums.CheckoutStepPaymentEntry, enums.CheckoutStepFailed:
		return nil
	case enums.CheckoutStepAddressEntry:
		return pkgerrors.New(pkgerrors.CodePrecondition, "shipping address required")
	case enums.CheckoutStepSubmitting:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
}

// Back returns from payment entry to address entry, keeping the address.
func (f *Flow) Back() error {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout was closed")
	}
	switch f.draft.Step {
	case enums.CheckoutStepAddressEntry:
		f.mu.Unlock()
		return nil
	case enums.CheckoutStepPaymentEntry, enums.CheckoutStepFailed:
		f.draft.Step = enums.CheckoutStepAddressEntry
		f.commitLocked()
		return nil
	case enums.CheckoutStepSubmitting:
		f.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
	}
	f.mu.Unlock()
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
}

// Discard abandons the draft. A submission still in flight is ignored when it
// returns, except that a successful one still clears the cart.
func (f *Flow) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discarded {
		return
	}
	f.discarded = true
	if f.draft.Step != enums.CheckoutStepCompleted {
		f.o.metrics.IncCheckout("discarded")
	}
}

// Discarded reports whether Discard was called.
func (f *Flow) Discarded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discarded
}

func (f *Flow) normalizeAddress(addr Address) Address {
	addr.Street = strings.TrimSpace(addr.Street)
	addr.Number = strings.TrimSpace(addr.Number)
	addr.Complement = strings.TrimSpace(addr.Complement)
	addr.Neighborhood = strings.TrimSpace(addr.Neighborhood)
	addr.City = strings.TrimSpace(addr.City)
	addr.State = helpers.NormalizeState(addr.State)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	addr.Country = strings.TrimSpace(addr.Country)
	if addr.Country == "" {
		addr.Country = f.o.cfg.DefaultCountry
	}
	return addr
}

func (f *Flow) shippingAddressLocked() gateway.ShippingAddress {
	a := f.draft.Address
	return gateway.ShippingAddress{
		Street:       a.Street,
		Number:       a.Number,
		Complement:   a.Complement,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

// commitLocked releases f.mu and publishes the draft in transition order.
func (f *Flow) commitLocked() {
	d := f.draft
	f.emitMu.Lock()
	f.mu.Unlock()
	defer f.emitMu.Unlock()
	f.hub.Publish(d)
}

func userMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.UserMessage()
	}
	return "Could not place your order. Please try again."
}
