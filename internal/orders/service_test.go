package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/observe"
	"github.com/angelmondragon/storefront-client/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

type fakeReader struct {
	mu       sync.Mutex
	calls    []pageKey
	gets     int
	onList   func()
	failWith error
}

func (f *fakeReader) MyOrders(_ context.Context, page, limit int) (gateway.Page[gateway.Order], error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageKey{page, limit})
	hook := f.onList
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.failWith != nil {
		return gateway.Page[gateway.Order]{}, f.failWith
	}
	return gateway.Page[gateway.Order]{
		Items:      []gateway.Order{{ID: "o-1", OrderNumber: "ORD-1", Total: decimal.NewFromInt(10)}},
		Pagination: gateway.Pagination{Page: page, PerPage: limit, Total: 1, TotalPages: 1},
	}, nil
}

func (f *fakeReader) GetOrder(_ context.Context, id string) (*gateway.Order, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()
	return &gateway.Order{ID: id}, nil
}

type fakeEvents struct {
	hub observe.Hub[session.Event]
}

func (f *fakeEvents) Subscribe(fn func(session.Event)) func() { return f.hub.Subscribe(fn) }

func authed(userID string) session.Event {
	return session.Event{Kind: session.EventChanged, Snapshot: session.Snapshot{Token: "tok", User: &gateway.User{ID: userID}}}
}

func TestMyOrdersCachesPerPage(t *testing.T) {
	reader := &fakeReader{}
	svc, err := NewService(reader, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.MyOrders(ctx, 1, 10); err != nil {
			t.Fatalf("MyOrders: %v", err)
		}
	}
	if _, err := svc.MyOrders(ctx, 2, 10); err != nil {
		t.Fatalf("MyOrders: %v", err)
	}
	if len(reader.calls) != 2 {
		t.Fatalf("expected 2 remote calls, got %d", len(reader.calls))
	}

	svc.Invalidate()
	if _, err := svc.MyOrders(ctx, 1, 10); err != nil {
		t.Fatalf("MyOrders: %v", err)
	}
	if len(reader.calls) != 3 {
		t.Fatalf("expected refetch after invalidate, got %d calls", len(reader.calls))
	}
}

func TestMyOrdersNormalizesPaging(t *testing.T) {
	reader := &fakeReader{}
	svc, _ := NewService(reader, nil, nil)
	if _, err := svc.MyOrders(context.Background(), 0, 500); err != nil {
		t.Fatalf("MyOrders: %v", err)
	}
	if got := reader.calls[0]; got != (pageKey{page: 1, limit: MaxLimit}) {
		t.Fatalf("unexpected paging %+v", got)
	}
}

func TestLogoutClearsCache(t *testing.T) {
	reader := &fakeReader{}
	events := &fakeEvents{}
	svc, _ := NewService(reader, events, nil)
	defer svc.Close()
	ctx := context.Background()

	events.hub.Publish(authed("u-1"))
	_, _ = svc.MyOrders(ctx, 1, 10)
	events.hub.Publish(session.Event{Kind: session.EventLoggedOut})
	_, _ = svc.MyOrders(ctx, 1, 10)

	if len(reader.calls) != 2 {
		t.Fatalf("expected logout to drop cached history, got %d calls", len(reader.calls))
	}
}

func TestDifferentUserClearsCache(t *testing.T) {
	reader := &fakeReader{}
	events := &fakeEvents{}
	svc, _ := NewService(reader, events, nil)
	ctx := context.Background()

	events.hub.Publish(authed("u-1"))
	_, _ = svc.MyOrders(ctx, 1, 10)
	events.hub.Publish(authed("u-1"))
	_, _ = svc.MyOrders(ctx, 1, 10)
	if len(reader.calls) != 1 {
		t.Fatalf("same user should keep the cache, got %d calls", len(reader.calls))
	}

	events.hub.Publish(authed("u-2"))
	_, _ = svc.MyOrders(ctx, 1, 10)
	if len(reader.calls) != 2 {
		t.Fatalf("new user should refetch, got %d calls", len(reader.calls))
	}
}

func TestPageFetchedAcrossLogoutIsNotCached(t *testing.T) {
	reader := &fakeReader{}
	events := &fakeEvents{}
	svc, _ := NewService(reader, events, nil)
	ctx := context.Background()

	reader.onList = func() { events.hub.Publish(session.Event{Kind: session.EventLoggedOut}) }
	_, _ = svc.MyOrders(ctx, 1, 10)
	reader.onList = nil
	_, _ = svc.MyOrders(ctx, 1, 10)

	if len(reader.calls) != 2 {
		t.Fatalf("stale page must not be cached, got %d calls", len(reader.calls))
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	reader := &fakeReader{failWith: pkgerrors.New(pkgerrors.CodeDependency, "down")}
	svc, _ := NewService(reader, nil, nil)
	ctx := context.Background()

	if _, err := svc.MyOrders(ctx, 1, 10); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	reader.failWith = nil
	if _, err := svc.MyOrders(ctx, 1, 10); err != nil {
		t.Fatalf("MyOrders: %v", err)
	}
	if len(reader.calls) != 2 {
		t.Fatalf("expected retry to hit remote, got %d", len(reader.calls))
	}
}

func TestGetOrderPrefersCache(t *testing.T) {
	reader := &fakeReader{}
	svc, _ := NewService(reader, nil, nil)
	ctx := context.Background()

	_, _ = svc.MyOrders(ctx, 1, 10)
	order, err := svc.GetOrder(ctx, "o-1")
	if err != nil || order.OrderNumber != "ORD-1" {
		t.Fatalf("expected cached order, got %+v %v", order, err)
	}
	if _, err := svc.GetOrder(ctx, "o-2"); err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reader.gets != 1 {
		t.Fatalf("expected one remote lookup, got %d", reader.gets)
	}
	if _, err := svc.GetOrder(ctx, ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceRequiresReader(t *testing.T) {
	if _, err := NewService(nil, nil, nil); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
