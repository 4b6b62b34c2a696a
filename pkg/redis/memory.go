package redis

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is a single-process stand-in for the idempotency and counter
// surfaces, used when the devserver runs without redis.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	values  map[string]memoryEntry
	counter map[string]memoryCounter
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

type memoryCounter struct {
	count   int64
	expires time.Time
}

var (
	_ IdempotencyStore = (*Memory)(nil)
	_ CounterStore     = (*Memory)(nil)
	_ IdempotencyStore = (*Client)(nil)
	_ CounterStore     = (*Client)(nil)
)

// NewMemory builds an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		now:     time.Now,
		values:  make(map[string]memoryEntry),
		counter: make(map[string]memoryCounter),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.values[key]
	if !ok || m.expired(entry.expires) {
		delete(m.values, key)
		return nil, ErrNil
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *Memory) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.values[key]; ok && !m.expired(entry.expires) {
		return false, nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = append([]byte(nil), v...)
	case string:
		raw = []byte(v)
	default:
		raw = []byte(fmt.Sprint(v))
	}
	m.values[key] = memoryEntry{value: raw, expires: m.deadline(ttl)}
	return true, nil
}

func (m *Memory) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counter[key]
	if !ok || m.expired(c.expires) {
		c = memoryCounter{expires: m.deadline(ttl)}
	}
	c.count++
	m.counter[key] = c
	return c.count, nil
}

func (m *Memory) IdempotencyKey(scope, id string) string {
	return (&Client{}).IdempotencyKey(scope, id)
}

func (m *Memory) RateLimitKey(scope string) string {
	return (&Client{}).RateLimitKey(scope)
}

func (m *Memory) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) expired(at time.Time) bool {
	return !at.IsZero() && !m.now().Before(at)
}
