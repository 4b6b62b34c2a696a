package gateway

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/shopspring/decimal"
)

// User is the shopper profile returned by the auth endpoints.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	AvatarURL *string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// IsSeller reports whether the account may manage a catalog.
func (u *User) IsSeller() bool {
	return u != nil && (u.Role == enums.RoleSeller || u.Role == enums.RoleAdmin)
}

// AuthPayload is the body of a successful login or registration.
type AuthPayload struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Product is a catalog entry. Only Name, Price and Images are copied into the cart.
type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug,omitempty"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice,omitempty"`
	StockQuantity  int              `json:"stockQuantity,omitempty"`
	Images         []string         `json:"images,omitempty"`
	Sizes          []enums.Size     `json:"sizes,omitempty"`
	Colors         []string         `json:"colors,omitempty"`
	IsActive       bool             `json:"isActive"`
}

// ShippingAddress is the delivery address attached to an order.
type ShippingAddress struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// OrderItemInput is one cart line as sent to POST /orders. Price is the
// snapshotted unit price, sent as a bare JSON number.
type OrderItemInput struct {
	ProductID string       `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Price     *json.Number `json:"price,omitempty"`
	Color     *string      `json:"color,omitempty"`
	Size      *enums.Size  `json:"size,omitempty"`
}

// CreateOrderRequest is the POST /orders body.
type CreateOrderRequest struct {
	Items           []OrderItemInput    `json:"items"`
	ShippingAddress ShippingAddress     `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}

type OrderItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"priceAtTime"`
	Color       *string         `json:"color,omitempty"`
	Size        *enums.Size     `json:"size,omitempty"`
}

type Order struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	OrderNumber     string           `json:"orderNumber"`
	Status          string           `json:"status"`
	Total           decimal.Decimal  `json:"total"`
	ShippingFee     decimal.Decimal  `json:"shippingFee"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	PaymentMethod   *string          `json:"paymentMethod,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	TrackingNumber  *string          `json:"trackingNumber,omitempty"`
	Items           []OrderItem      `json:"items"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Pagination mirrors the envelope's pagination block.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// HasNext reports whether another page exists.
func (p Page[T]) HasNext() bool {
	return p.Pagination.Page < p.Pagination.TotalPages
}
