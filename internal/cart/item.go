package cart

import (
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the part of a product copied into the cart when added.
// Later catalog price changes do not affect it.
type ProductSnapshot struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Images    []string        `json:"images,omitempty"`
}

// Item is one cart line.
type Item struct {
	ProductID string          `json:"product_id"`
	Product   ProductSnapshot `json:"product"`
	Quantity  int             `json:"quantity"`
	Size      *enums.Size     `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

// Key is a line's identity. An absent size or color is distinct from any value.
type Key struct {
	ProductID string
	Size      enums.Size
	HasSize   bool
	Color     string
	HasColor  bool
}

// KeyOf builds the identity for a product, size and color triple.
func KeyOf(productID string, size *enums.Size, color *string) Key {
	k := Key{ProductID: productID}
	if size != nil {
		k.Size, k.HasSize = *size, true
	}
	if color != nil {
		k.Color, k.HasColor = *color, true
	}
	return k
}

// Key returns the item's identity.
func (i Item) Key() Key {
	return KeyOf(i.ProductID, i.Size, i.Color)
}

// LineTotal is unit price times quantity, unrounded.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) clone() Item {
	out := i
	if i.Size != nil {
		s := *i.Size
		out.Size = &s
	}
	if i.Color != nil {
		c := *i.Color
		out.Color = &c
	}
	if i.Product.Images != nil {
		out.Product.Images = append([]string(nil), i.Product.Images...)
	}
	return out
}

// ItemFromProduct snapshots p into a cart line.
func ItemFromProduct(p gateway.Product, quantity int, size *enums.Size, color *string) Item {
	return Item{
		ProductID: p.ID,
		Product: ProductSnapshot{
			Name:      p.Name,
			UnitPrice: p.Price,
			Images:    append([]string(nil), p.Images...),
		},
		Quantity: quantity,
		Size:     size,
		Color:    color,
	}.clone()
}

// Snapshot is an immutable view of the cart.
type Snapshot struct {
	Revision uint64
	Items    []Item
	Open     bool
}

// Total sums every line at its snapshotted price. Rounding happens at display.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count sums quantities.
func (s Snapshot) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}
