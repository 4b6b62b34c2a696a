package orders

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
)

const (
	DefaultPage  = 1
	DefaultLimit = pagination.DefaultLimit
	MaxLimit     = pagination.MaxLimit
)

// Reader is the remote order history API.
type Reader interface {
	MyOrders(ctx context.Context, page, limit int) (gateway.Page[gateway.Order], error)
	GetOrder(ctx context.Context, id string) (*gateway.Order, error)
}

// SessionEvents delivers auth session changes.
type SessionEvents interface {
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// Service reads the shopper's order history, caching pages for the current
// session.
type Service interface {
	MyOrders(ctx context.Context, page, limit int) (gateway.Page[gateway.Order], error)
	GetOrder(ctx context.Context, id string) (*gateway.Order, error)
	// Invalidate drops cached pages, e.g. after a new order is placed.
	Invalidate()
	Close()
}

type pageKey struct {
	page, limit int
}

type service struct {
	reader Reader
	logg   *logger.Logger

	mu         sync.Mutex
	pages      map[pageKey]gateway.Page[gateway.Order]
	owner      string
	generation uint64

	unsubscribe func()
}

func NewService(reader Reader, events SessionEvents, logg *logger.Logger) (Service, error) {
	if reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders reader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{reader: reader, logg: logg, pages: map[pageKey]gateway.Page[gateway.Order]{}}
	if events != nil {
		s.unsubscribe = events.Subscribe(s.onSession)
	}
	return s, nil
}

func (s *service) onSession(ev session.Event) {
	if ev.Kind == session.EventLoggedOut || !ev.Snapshot.IsAuthenticated() {
		s.Invalidate()
		return
	}
	owner := ""
	if ev.Snapshot.User != nil {
		owner = ev.Snapshot.User.ID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner != s.owner {
		s.resetLocked()
		s.owner = owner
	}
}

func (s *service) MyOrders(ctx context.Context, page, limit int) (gateway.Page[gateway.Order], error) {
	key := normalizePage(page, limit)

	s.mu.Lock()
	if cached, ok := s.pages[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	gen := s.generation
	s.mu.Unlock()

	result, err := s.reader.MyOrders(ctx, key.page, key.limit)
	if err != nil {
		return gateway.Page[gateway.Order]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Session changed while the request was in flight.
		s.logg.Debug(ctx, "orders.stale_page_dropped")
		return result, nil
	}
	s.pages[key] = result
	return result, nil
}

func (s *service) GetOrder(ctx context.Context, id string) (*gateway.Order, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	s.mu.Lock()
	for _, p := range s.pages {
		for i := range p.Items {
			if p.Items[i].ID == id {
				order := p.Items[i]
				s.mu.Unlock()
				return &order, nil
			}
		}
	}
	s.mu.Unlock()
	return s.reader.GetOrder(ctx, id)
}

func (s *service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *service) resetLocked() {
	s.generation++
	s.owner = ""
	clear(s.pages)
}

func normalizePage(page, limit int) pageKey {
	params := pagination.Normalize(page, limit, DefaultLimit)
	return pageKey{page: params.Page, limit: params.Limit}
}
