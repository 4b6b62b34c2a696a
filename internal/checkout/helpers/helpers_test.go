package helpers

import (
	"testing"

	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestBuildOrderRequestCopiesLines(t *testing.T) {
	size := enums.SizeM
	color := "black"
	snap := cart.Snapshot{Items: []cart.Item{
		{ProductID: "a", Product: cart.ProductSnapshot{UnitPrice: decimal.RequireFromString("49.90")}, Quantity: 2, Size: &size, Color: &color},
		{ProductID: "b", Product: cart.ProductSnapshot{UnitPrice: decimal.NewFromInt(10)}, Quantity: 1},
	}}

	req, err := BuildOrderRequest(snap, gateway.ShippingAddress{City: "Recife"}, enums.PaymentMethodPix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(req.Items))
	}
	first := req.Items[0]
	if first.ProductID != "a" || first.Quantity != 2 || first.Price.String() != "49.9" {
		t.Fatalf("unexpected first line %+v", first)
	}
	if *first.Size != enums.SizeM || *first.Color != "black" {
		t.Fatalf("variant not carried: %+v", first)
	}
	if req.Items[1].Size != nil || req.Items[1].Color != nil {
		t.Fatalf("absent variant should stay nil")
	}
	if req.PaymentMethod != enums.PaymentMethodPix || req.ShippingAddress.City != "Recife" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestBuildOrderRequestRejectsEmptyCart(t *testing.T) {
	_, err := BuildOrderRequest(cart.Snapshot{}, gateway.ShippingAddress{}, enums.PaymentMethodPix)
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestBuildOrderRequestRejectsNonPositiveQuantity(t *testing.T) {
	snap := cart.Snapshot{Items: []cart.Item{{ProductID: "a", Quantity: 0}}}
	_, err := BuildOrderRequest(snap, gateway.ShippingAddress{}, enums.PaymentMethodPix)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPostalCodeProblem(t *testing.T) {
	cases := map[string]string{
		"":           "is required",
		"  ":         "is required",
		"1234":       "must be at least 8 characters",
		"01310-100":  "",
		" 01310100 ": "",
	}
	for in, want := range cases {
		if got := PostalCodeProblem(in, 8); got != want {
			t.Fatalf("PostalCodeProblem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeState(t *testing.T) {
	if got := NormalizeState(" sp "); got != "SP" {
		t.Fatalf("expected SP, got %q", got)
	}
	if got := NormalizeState("Pernambuco"); got != "Pernambuco" {
		t.Fatalf("unexpected %q", got)
	}
	if got := DigitsOnly("4111 1111-1111 1111"); got != "4111111111111111" {
		t.Fatalf("unexpected %q", got)
	}
}
