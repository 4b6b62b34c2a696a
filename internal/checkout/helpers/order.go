package helpers

import (
	"encoding/json"

	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// BuildOrderRequest turns a cart snapshot into the POST /orders body. Each line
// carries the unit price captured when it was added to the cart.
func BuildOrderRequest(snap cart.Snapshot, address gateway.ShippingAddress, method enums.PaymentMethod) (gateway.CreateOrderRequest, error) {
	if snap.Empty() {
		return gateway.CreateOrderRequest{}, pkgerrors.New(pkgerrors.CodePrecondition, "your cart is empty")
	}
	items := make([]gateway.OrderItemInput, 0, len(snap.Items))
	for _, item := range snap.Items {
		if item.Quantity < 1 {
			return gateway.CreateOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "every item needs a quantity of at least 1").
				WithDetails(map[string]string{"product_id": item.ProductID})
		}
		price := json.Number(item.Product.UnitPrice.String())
		items = append(items, gateway.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     &price,
			Color:     item.Color,
			Size:      item.Size,
		})
	}
	return gateway.CreateOrderRequest{
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   method,
	}, nil
}
