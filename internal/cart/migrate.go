package cart

import (
	"encoding/json"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/shopspring/decimal"
)

// legacyItem is the pre-versioned layout, which embedded the whole product.
type legacyItem struct {
	Product struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Price  decimal.Decimal `json:"price"`
		Images []string        `json:"images"`
	} `json:"product"`
	Quantity int         `json:"quantity"`
	Size     *enums.Size `json:"size"`
	Color    *string     `json:"color"`
}

// MigrateLegacy upgrades version-0 cart payloads to the current layout.
func MigrateLegacy(from int, payload json.RawMessage) (json.RawMessage, error) {
	if from != 0 {
		return payload, nil
	}
	var old struct {
		Items []legacyItem `json:"items"`
	}
	if err := json.Unmarshal(payload, &old); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(old.Items))
	for _, li := range old.Items {
		items = append(items, Item{
			ProductID: li.Product.ID,
			Product: ProductSnapshot{
				Name:      li.Product.Name,
				UnitPrice: li.Product.Price,
				Images:    li.Product.Images,
			},
			Quantity: li.Quantity,
			Size:     li.Size,
			Color:    li.Color,
		})
	}
	return json.Marshal(persisted{Items: items})
}
