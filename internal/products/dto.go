package product

import (
	"github.com/angelmondragon/storefront-client/internal/gateway"
)

// FromModel converts a catalog row into its wire shape.
func FromModel(p *Product) *gateway.Product {
	if p == nil {
		return nil
	}
	return &gateway.Product{
		ID:             p.ID.String(),
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		StockQuantity:  p.StockQuantity,
		Images:         append([]string{}, p.Images...),
		Sizes:          p.Sizes,
		Colors:         p.Colors,
		IsActive:       p.IsActive,
	}
}

// FromModels converts a page of rows.
func FromModels(rows []Product) []gateway.Product {
	out := make([]gateway.Product, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
