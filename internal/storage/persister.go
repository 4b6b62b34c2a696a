package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("storage: persister closed")

// PersisterParams configures a Persister.
type PersisterParams struct {
	Store        Store
	Logger       *logger.Logger
	Metrics      *metrics.ClientMetrics
	WriteTimeout time.Duration
	Now          func() time.Time
	// Migrations upgrade older payloads per key on Load.
	Migrations map[string]Migration
}

type pendingWrite struct {
	seq    uint64
	value  []byte
	delete bool
}

// Persister writes snapshots behind the caller on a single goroutine. Saves
// never block; the latest pending value per key wins and writes land in
// enqueue order. The first failed write switches the persister to
// memory-only for the rest of the process.
type Persister struct {
	store        Store
	logg         *logger.Logger
	metrics      *metrics.ClientMetrics
	writeTimeout time.Duration
	now          func() time.Time
	migrations   map[string]Migration

	mu       sync.Mutex
	pending  map[string]pendingWrite
	enqueued uint64
	applied  uint64
	progress chan struct{}
	degraded bool
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewPersister starts the writer goroutine. Call Close to stop it.
func NewPersister(params PersisterParams) (*Persister, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	p := &Persister{
		store:        params.Store,
		logg:         logg,
		metrics:      params.Metrics,
		writeTimeout: timeout,
		now:          now,
		migrations:   params.Migrations,
		pending:      make(map[string]pendingWrite),
		progress:     make(chan struct{}),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Load reads and decodes the snapshot stored under key. found is false when
// nothing was stored. A corrupt value is reported as an error so callers can
// start empty.
func (p *Persister) Load(ctx context.Context, key string, out any) (bool, error) {
	raw, err := p.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := decodeEnvelope(raw, out, p.migrations[key]); err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return true, nil
}

// Save encodes v now and queues the bytes for writing.
func (p *Persister) Save(ctx context.Context, key string, v any) {
	raw, err := encodeEnvelope(v, p.now())
	if err != nil {
		p.logg.Error(p.logg.WithField(ctx, "key", key), "storage.encode_failed", err)
		return
	}
	p.enqueue(key, pendingWrite{value: raw})
}

// Remove queues deletion of key.
func (p *Persister) Remove(key string) {
	p.enqueue(key, pendingWrite{delete: true})
}

// Degraded reports whether a write has failed and persistence is off.
func (p *Persister) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

func (p *Persister) enqueue(key string, w pendingWrite) {
	p.mu.Lock()
	if p.closed || p.degraded {
		p.mu.Unlock()
		return
	}
	p.enqueued++
	w.seq = p.enqueued
	p.pending[key] = w
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every write queued before the call has been applied or dropped.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.enqueued
	for p.applied < target {
		if p.closed && p.isDone() {
			p.mu.Unlock()
			return ErrClosed
		}
		ch := p.progress
		p.mu.Unlock()
		select {
		case <-ch:
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.mu.Lock()
	}
	p.mu.Unlock()
	return nil
}

func (p *Persister) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Close drains queued writes and stops the writer. Safe to call twice.
func (p *Persister) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.stop)
	<-p.done
	return nil
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

type keyedWrite struct {
	key string
	pendingWrite
}

func (p *Persister) drain() {
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.mu.Unlock()
			return
		}
		batch := make([]keyedWrite, 0, len(p.pending))
		for key, w := range p.pending {
			batch = append(batch, keyedWrite{key: key, pendingWrite: w})
		}
		p.pending = make(map[string]pendingWrite)
		p.mu.Unlock()

		sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
		for _, w := range batch {
			p.apply(w)
		}
	}
}

func (p *Persister) apply(w keyedWrite) {
	p.mu.Lock()
	skip := p.degraded
	p.mu.Unlock()

	if !skip {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		var err error
		if w.delete {
			err = p.store.Delete(ctx, w.key)
		} else {
			err = p.store.Put(ctx, w.key, w.value)
		}
		cancel()
		if err != nil {
			p.degrade(w.key, err)
		}
	}

	p.mu.Lock()
	if w.seq > p.applied {
		p.applied = w.seq
	}
	if p.degraded {
		// nothing else will be written; release every waiter
		p.applied = p.enqueued
		p.pending = make(map[string]pendingWrite)
	}
	close(p.progress)
	p.progress = make(chan struct{})
	p.mu.Unlock()
}

func (p *Persister) degrade(key string, err error) {
	p.mu.Lock()
	already := p.degraded
	p.degraded = true
	p.mu.Unlock()

	p.metrics.IncPersistFailure(key)
	if already {
		return
	}
	ctx := p.logg.WithField(context.Background(), "key", key)
	ctx = p.logg.WithField(ctx, "error", err.Error())
	p.logg.Warn(ctx, "storage.persist_failed: continuing memory-only")
}
