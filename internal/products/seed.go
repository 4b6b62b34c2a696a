package product

import (
	"context"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/shopspring/decimal"
)

var seedCatalog = []Product{
	{Name: "Camiseta Básica", Slug: "camiseta-basica", Description: "Algodão penteado, corte reto.", Price: decimal.RequireFromString("49.90"), StockQuantity: 120, Images: []string{"/img/camiseta-basica.jpg"}, Sizes: []enums.Size{enums.SizeS, enums.SizeM, enums.SizeL, enums.SizeXL}, Colors: []string{"black", "white", "navy"}, IsActive: true},
	{Name: "Calça Jeans Slim", Slug: "calca-jeans-slim", Description: "Jeans com elastano.", Price: decimal.RequireFromString("189.90"), CompareAtPrice: decimalPtr("229.90"), StockQuantity: 40, Images: []string{"/img/jeans-slim.jpg"}, Sizes: []enums.Size{enums.SizeS, enums.SizeM, enums.SizeL}, Colors: []string{"blue"}, IsActive: true},
	{Name: "Jaqueta Corta-Vento", Slug: "jaqueta-corta-vento", Description: "Leve e impermeável.", Price: decimal.RequireFromString("259.00"), StockQuantity: 15, Images: []string{"/img/jaqueta.jpg"}, Sizes: []enums.Size{enums.SizeM, enums.SizeL, enums.SizeXL}, Colors: []string{"black", "green"}, IsActive: true},
	{Name: "Boné Aba Curva", Slug: "bone-aba-curva", Description: "Ajuste traseiro em velcro.", Price: decimal.RequireFromString("79.90"), StockQuantity: 60, Images: []string{"/img/bone.jpg"}, Colors: []string{"black", "beige"}, IsActive: true},
	{Name: "Vestido Midi", Slug: "vestido-midi", Description: "Viscose estampada.", Price: decimal.RequireFromString("219.90"), StockQuantity: 25, Images: []string{"/img/vestido-midi.jpg"}, Sizes: []enums.Size{enums.SizeXS, enums.SizeS, enums.SizeM}, Colors: []string{"red", "floral"}, IsActive: true},
	{Name: "Meia Cano Alto (3 pares)", Slug: "meia-cano-alto", Description: "Kit com três pares.", Price: decimal.RequireFromString("39.90"), StockQuantity: 300, Images: []string{"/img/meias.jpg"}, IsActive: true},
	{Name: "Tênis Casual", Slug: "tenis-casual", Description: "Solado de borracha.", Price: decimal.RequireFromString("349.00"), StockQuantity: 0, Images: []string{"/img/tenis.jpg"}, Colors: []string{"white"}, IsActive: true},
	{Name: "Moletom Antigo", Slug: "moletom-antigo", Description: "Fora de linha.", Price: decimal.RequireFromString("159.90"), StockQuantity: 5, IsActive: false},
}

// Seed fills an empty catalog with a fixed demo assortment.
func Seed(ctx context.Context, repo *Repository) (int, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	inserted := 0
	for i := range seedCatalog {
		p := seedCatalog[i]
		if _, err := repo.Create(ctx, &p); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func decimalPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
