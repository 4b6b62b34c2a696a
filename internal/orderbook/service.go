package orderbook

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	product "github.com/angelmondragon/storefront-client/internal/products"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultLimit = pagination.DefaultLimit
	MaxLimit     = pagination.MaxLimit
)

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service places and reads orders for the devserver.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req gateway.CreateOrderRequest) (*gateway.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) (gateway.Page[gateway.Order], error)
	GetForUser(ctx context.Context, userID uuid.UUID, orderID string) (*gateway.Order, error)
}

type service struct {
	tx       TxRunner
	orders   *Repository
	products *product.Repository
	logg     *logger.Logger
}

func NewService(tx TxRunner, orders *Repository, products *product.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if orders == nil || products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and product repositories required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, orders: orders, products: products, logg: logg}, nil
}

// PlaceOrder prices every line from the catalog, reserves stock and stores
// the order in one transaction. Client-sent prices are ignored.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must have at least one item")
	}
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	order := &Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderNumber:     newOrderNumber(),
		Status:          enums.OrderStatusPending,
		ShippingFee:     decimal.Zero,
		DiscountAmount:  decimal.Zero,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		total := decimal.Zero
		items := make([]OrderItem, 0, len(req.Items))
		for i, line := range req.Items {
			if line.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
					WithDetails(map[string]any{"item": i})
			}
			productID, err := uuid.Parse(line.ProductID)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
					WithDetails(map[string]any{"item": i})
			}
			p, err := products.FindByID(ctx, productID)
			if err != nil {
				return err
			}
			if !p.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, "product is not available: "+p.Name)
			}
			if err := products.ReserveStock(ctx, productID, line.Quantity); err != nil {
				return err
			}
			items = append(items, OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   productID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				PriceAtTime: p.Price,
				Color:       line.Color,
				Size:        line.Size,
			})
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		order.Items = items
		order.Total = total.Add(order.ShippingFee).Sub(order.DiscountAmount).Round(2)
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"order_number": order.OrderNumber, "user_id": userID.String()})
	s.logg.Info(ctx, "orderbook.order_placed")
	return FromModel(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) (gateway.Page[gateway.Order], error) {
	params := pagination.Normalize(page, limit, DefaultLimit)
	rows, total, err := s.orders.ListByUser(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return gateway.Page[gateway.Order]{}, err
	}
	items := make([]gateway.Order, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return gateway.Page[gateway.Order]{
		Items:      items,
		Pagination: product.Paginate(params.Page, params.Limit, total),
	}, nil
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID, orderID string) (*gateway.Order, error) {
	parsed, err := uuid.Parse(orderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.orders.FindForUser(ctx, userID, parsed)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
