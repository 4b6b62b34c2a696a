package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// Login exchanges credentials for a user and bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthPayload, error) {
	return call[*AuthPayload](ctx, c, request{
		method: http.MethodPost, route: "POST /auth/login", path: "/auth/login", body: req, anonymous: true,
	}).Unwrap()
}

// Register creates an account. A duplicate email comes back as CodeConflict.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthPayload, error) {
	return call[*AuthPayload](ctx, c, request{
		method: http.MethodPost, route: "POST /auth/register", path: "/auth/register", body: req, anonymous: true,
	}).Unwrap()
}

// Me returns the user behind the current bearer token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	return call[*User](ctx, c, request{
		method: http.MethodGet, route: "GET /auth/me", path: "/auth/me",
	}).Unwrap()
}

// CreateOrder submits the cart. idempotencyKey must stay the same across retries
// of one checkout so the service can dedupe.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order has no items")
	}
	headers := map[string]string{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers[HeaderIdempotencyKey] = key
	}
	return call[*Order](ctx, c, request{
		method: http.MethodPost, route: "POST /orders", path: "/orders", body: req, headers: headers,
	}).Unwrap()
}

// MyOrders lists the current user's orders.
func (c *Client) MyOrders(ctx context.Context, page, limit int) (Page[Order], error) {
	return listCall[Order](ctx, c, request{
		method: http.MethodGet, route: "GET /orders/my-orders", path: "/orders/my-orders", query: pageQuery(page, limit),
	})
}

// GetOrder fetches a single order owned by the current user.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return call[*Order](ctx, c, request{
		method: http.MethodGet, route: "GET /orders/:id", path: "/orders/" + url.PathEscape(id),
	}).Unwrap()
}

// ListProducts returns one page of the active catalog.
func (c *Client) ListProducts(ctx context.Context, page, limit int) (Page[Product], error) {
	return listCall[Product](ctx, c, request{
		method: http.MethodGet, route: "GET /products", path: "/products", query: pageQuery(page, limit),
	})
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return call[*Product](ctx, c, request{
		method: http.MethodGet, route: "GET /products/:id", path: "/products/" + url.PathEscape(id),
	}).Unwrap()
}

// SearchProducts runs a catalog text search.
func (c *Client) SearchProducts(ctx context.Context, query string, page, limit int) (Page[Product], error) {
	q := pageQuery(page, limit)
	q.Set("q", strings.TrimSpace(query))
	return listCall[Product](ctx, c, request{
		method: http.MethodGet, route: "GET /products/search", path: "/products/search", query: q,
	})
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// pagedData is the alternate listing layout with pagination inside data.
type pagedData[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// listCall accepts both a bare array in data (with an optional top-level
// pagination block) and a {items,total,page,...} object.
func listCall[T any](ctx context.Context, c *Client, r request) (Page[T], error) {
	res := call[json.RawMessage](ctx, c, r)
	if res.Err != nil {
		return Page[T]{}, &StatusError{Status: res.Status, Authorized: res.Authorized, Err: res.Err}
	}

	raw := []byte(res.Value)
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Page[T]{Items: []T{}}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return Page[T]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode listing")
		}
		page := Page[T]{Items: items}
		if res.Pagination != nil {
			page.Pagination = *res.Pagination
		} else {
			page.Pagination = Pagination{Page: 1, PerPage: len(items), Total: int64(len(items)), TotalPages: 1}
		}
		return page, nil
	}

	var paged pagedData[T]
	if err := json.Unmarshal(raw, &paged); err != nil {
		return Page[T]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode listing")
	}
	if paged.Items == nil {
		paged.Items = []T{}
	}
	return Page[T]{
		Items: paged.Items,
		Pagination: Pagination{
			Page:       paged.Page,
			PerPage:    paged.PerPage,
			Total:      paged.Total,
			TotalPages: paged.TotalPages,
		},
	}, nil
}
