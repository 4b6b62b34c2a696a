package product

import (
	"time"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog row served by the devserver.
type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name           string           `gorm:"not null"`
	Slug           string           `gorm:"uniqueIndex;not null"`
	Description    string           `gorm:"not null;default:''"`
	Price          decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"type:numeric(12,2)"`
	StockQuantity  int              `gorm:"not null"`
	Images         []string         `gorm:"serializer:json"`
	Sizes          []enums.Size     `gorm:"serializer:json"`
	Colors         []string         `gorm:"serializer:json"`
	IsActive       bool             `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Product) TableName() string { return "products" }
