package orderbook

import (
	"time"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a placed order row.
type Order struct {
	ID              uuid.UUID               `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID               `gorm:"type:uuid;index;not null"`
	OrderNumber     string                  `gorm:"uniqueIndex;not null"`
	Status          enums.OrderStatus       `gorm:"not null"`
	Total           decimal.Decimal         `gorm:"type:numeric(12,2);not null"`
	ShippingFee     decimal.Decimal         `gorm:"type:numeric(12,2);not null"`
	DiscountAmount  decimal.Decimal         `gorm:"type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod     `gorm:"not null"`
	ShippingAddress gateway.ShippingAddress `gorm:"serializer:json"`
	TrackingNumber  *string
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order, priced when the order was placed.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"not null"`
	Quantity    int             `gorm:"not null"`
	PriceAtTime decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Color       *string
	Size        *enums.Size
}

func (OrderItem) TableName() string { return "order_items" }
