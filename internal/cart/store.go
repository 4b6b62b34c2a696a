package cart

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/observe"
	"github.com/angelmondragon/storefront-client/internal/storage"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/shopspring/decimal"
)

// Persister is the durable snapshot writer.
type Persister interface {
	Load(ctx context.Context, key string, out any) (bool, error)
	Save(ctx context.Context, key string, v any)
}

// Options tunes quantity handling.
type Options struct {
	// AllowNonPositive stores quantities below 1 verbatim instead of raising
	// them to 1.
	AllowNonPositive bool
}

type Params struct {
	Persister Persister
	Logger    *logger.Logger
	Options   Options
}

// persisted is the durable layout. The drawer flag is not stored.
type persisted struct {
	Items []Item `json:"items"`
}

// Store owns the cart. Mutations never fail and never wait on storage.
type Store struct {
	persist Persister
	logg    *logger.Logger
	opts    Options

	mu       sync.Mutex
	emitMu   sync.Mutex
	items    []Item
	open     bool
	revision uint64

	hub observe.Hub[Snapshot]
}

func NewStore(params Params) (*Store, error) {
	if params.Persister == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart persister required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{persist: params.Persister, logg: logg, opts: params.Options}, nil
}

// Hydrate restores the persisted items once at startup. A corrupt record is
// logged and the cart starts empty.
func (s *Store) Hydrate(ctx context.Context) error {
	var rec persisted
	found, err := s.persist.Load(ctx, storage.KeyCart, &rec)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.hydrate_failed")
		return nil
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.items = s.items[:0]
	for _, item := range rec.Items {
		item.Quantity = s.normalize(item.Quantity)
		s.mergeLocked(item)
	}
	s.commitLocked(false)
	return nil
}

// AddItem merges into the line with the same identity or appends a new one.
func (s *Store) AddItem(item Item) Snapshot {
	item = item.clone()
	item.Quantity = s.normalize(item.Quantity)

	s.mu.Lock()
	s.mergeLocked(item)
	return s.commitLocked(true)
}

func (s *Store) mergeLocked(item Item) {
	key := item.Key()
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity = s.normalize(s.items[i].Quantity + item.Quantity)
			return
		}
	}
	s.items = append(s.items, item)
}

// RemoveItem deletes the matching line; absent lines are ignored.
func (s *Store) RemoveItem(productID string, size *enums.Size, color *string) Snapshot {
	key := KeyOf(productID, size, color)
	s.mu.Lock()
	idx := s.indexLocked(key)
	if idx < 0 {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return s.commitLocked(true)
}

// UpdateQuantity sets the matching line's quantity; absent lines are ignored.
func (s *Store) UpdateQuantity(productID string, size *enums.Size, color *string, quantity int) Snapshot {
	key := KeyOf(productID, size, color)
	s.mu.Lock()
	idx := s.indexLocked(key)
	if idx < 0 {
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
	s.items[idx].Quantity = s.normalize(quantity)
	return s.commitLocked(true)
}

// Clear empties the cart. The drawer flag is untouched.
func (s *Store) Clear() Snapshot {
	s.mu.Lock()
	s.items = nil
	return s.commitLocked(true)
}

// ToggleVisibility sets the drawer flag, or flips it when open is nil.
func (s *Store) ToggleVisibility(open *bool) Snapshot {
	s.mu.Lock()
	if open != nil {
		s.open = *open
	} else {
		s.open = !s.open
	}
	return s.commitLocked(false)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Items() []Item {
	return s.Snapshot().Items
}

func (s *Store) Total() decimal.Decimal {
	return s.Snapshot().Total()
}

func (s *Store) Count() int {
	return s.Snapshot().Count()
}

// Subscribe registers fn for every change. fn runs synchronously in mutation
// order and must not mutate the cart.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

func (s *Store) normalize(quantity int) int {
	if quantity < 1 && !s.opts.AllowNonPositive {
		return 1
	}
	return quantity
}

func (s *Store) indexLocked(key Key) int {
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]Item, len(s.items))
	for i, item := range s.items {
		items[i] = item.clone()
	}
	return Snapshot{Revision: s.revision, Items: items, Open: s.open}
}

// commitLocked bumps the revision, optionally persists, releases s.mu and
// notifies subscribers in mutation order.
func (s *Store) commitLocked(save bool) Snapshot {
	s.revision++
	snap := s.snapshotLocked()
	if save {
		s.persist.Save(context.Background(), storage.KeyCart, persisted{Items: snap.Items})
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	s.hub.Publish(snap)
	return snap
}
