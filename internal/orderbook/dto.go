package orderbook

import (
	"github.com/angelmondragon/storefront-client/internal/gateway"
)

// FromModel converts an order row into its wire shape.
func FromModel(o *Order) *gateway.Order {
	if o == nil {
		return nil
	}
	method := o.PaymentMethod.String()
	address := o.ShippingAddress
	items := make([]gateway.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, gateway.OrderItem{
			ID:          it.ID.String(),
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			PriceAtTime: it.PriceAtTime,
			Color:       it.Color,
			Size:        it.Size,
		})
	}
	return &gateway.Order{
		ID:              o.ID.String(),
		UserID:          o.UserID.String(),
		OrderNumber:     o.OrderNumber,
		Status:          o.Status.String(),
		Total:           o.Total,
		ShippingFee:     o.ShippingFee,
		DiscountAmount:  o.DiscountAmount,
		PaymentMethod:   &method,
		ShippingAddress: &address,
		TrackingNumber:  o.TrackingNumber,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}
