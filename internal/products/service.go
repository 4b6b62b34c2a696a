package product

import (
	"context"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
	"github.com/google/uuid"
)

// DefaultLimit is the catalog page size when none is requested.
const DefaultLimit = 20

// Service exposes the public catalog reads.
type Service interface {
	List(ctx context.Context, page, limit int) (gateway.Page[gateway.Product], error)
	Search(ctx context.Context, query string, page, limit int) (gateway.Page[gateway.Product], error)
	Get(ctx context.Context, id string) (*gateway.Product, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, page, limit int) (gateway.Page[gateway.Product], error) {
	return s.page(ctx, "", page, limit)
}

func (s *service) Search(ctx context.Context, query string, page, limit int) (gateway.Page[gateway.Product], error) {
	return s.page(ctx, query, page, limit)
}

func (s *service) Get(ctx context.Context, id string) (*gateway.Product, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	p, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(p), nil
}

func (s *service) page(ctx context.Context, query string, page, limit int) (gateway.Page[gateway.Product], error) {
	params := pagination.Normalize(page, limit, DefaultLimit)
	rows, total, err := s.repo.ListActive(ctx, query, params.Offset(), params.Limit)
	if err != nil {
		return gateway.Page[gateway.Product]{}, err
	}
	return gateway.Page[gateway.Product]{
		Items:      FromModels(rows),
		Pagination: Paginate(params.Page, params.Limit, total),
	}, nil
}

// Paginate builds listing metadata.
func Paginate(page, limit int, total int64) gateway.Pagination {
	return gateway.Pagination{Page: page, PerPage: limit, Total: total, TotalPages: pagination.TotalPages(total, limit)}
}
