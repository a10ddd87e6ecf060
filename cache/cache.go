// Package cache implements the tiered TTL cache that sits in front of
// graph writes. Only the hot tier holds real entries; the warm and cold
// tiers are declared so a slower backing store can be plugged in later
// without touching call sites.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Tier is a single backing store of the cache hierarchy.
type Tier interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// NoopTier accepts writes and always misses. It stands in for warm and
// cold tiers that have no backing store configured.
type NoopTier struct{}

func (NoopTier) Get(string) (any, bool) { return nil, false }
func (NoopTier) Set(string, any)        {}
func (NoopTier) Delete(string)          {}

type entry struct {
	value     any
	expiresAt time.Time
}

// Stats reports the hot tier's occupancy.
type Stats struct {
	Entries  int
	Capacity int
}

// Manager is a bounded in-memory TTL cache. Entries share one uniform
// TTL, so the oldest-expiring entries are also the oldest-inserted ones;
// eviction exploits that instead of tracking true LRU order.
type Manager struct {
	mu       sync.Mutex
	hot      map[string]entry
	capacity int
	ttl      time.Duration

	warm Tier
	cold Tier

	now func() time.Time
}

// NewManager creates a cache with the given hot-tier capacity and TTL.
// Warm and cold tiers default to no-ops.
func NewManager(capacity int, ttl time.Duration) *Manager {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{
		hot:      make(map[string]entry, capacity),
		capacity: capacity,
		ttl:      ttl,
		warm:     NoopTier{},
		cold:     NoopTier{},
		now:      time.Now,
	}
}

// SetWarmTier replaces the warm backing store.
func (m *Manager) SetWarmTier(t Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warm = t
}

// SetColdTier replaces the cold backing store.
func (m *Manager) SetColdTier(t Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cold = t
}

// SetHot stores a value in the hot tier. When the tier is full, the
// oldest-expiring ~10% of entries are evicted first.
func (m *Manager) SetHot(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.hot[key]; !exists && len(m.hot) >= m.capacity {
		m.evictOldestLocked()
	}
	m.hot[key] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
}

// evictOldestLocked drops the soonest-expiring tenth of the hot tier.
func (m *Manager) evictOldestLocked() {
	type aged struct {
		key       string
		expiresAt time.Time
	}
	entries := make([]aged, 0, len(m.hot))
	for k, e := range m.hot {
		entries = append(entries, aged{key: k, expiresAt: e.expiresAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].expiresAt.Before(entries[j].expiresAt) })

	n := m.capacity / 10
	if n < 1 {
		n = 1
	}
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(m.hot, e.key)
	}
}

// GetHot returns the live value for a key. Expired entries are removed
// on the way out and report a miss rather than stale data.
func (m *Manager) GetHot(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.hot[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		delete(m.hot, key)
		return nil, false
	}
	return e.value, true
}

// HasHot reports whether a live entry exists for the key.
func (m *Manager) HasHot(key string) bool {
	_, ok := m.GetHot(key)
	return ok
}

// DeleteHot removes a key from the hot tier.
func (m *Manager) DeleteHot(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hot, key)
}

// GetWarm reads from the warm tier. With no backing store configured it
// always misses.
func (m *Manager) GetWarm(key string) (any, bool) { return m.warm.Get(key) }

// SetWarm writes to the warm tier.
func (m *Manager) SetWarm(key string, value any) { m.warm.Set(key, value) }

// GetCold reads from the cold tier.
func (m *Manager) GetCold(key string) (any, bool) { return m.cold.Get(key) }

// SetCold writes to the cold tier.
func (m *Manager) SetCold(key string, value any) { m.cold.Set(key, value) }

// CleanExpired sweeps the hot tier and removes every expired entry,
// returning the count removed. Intended for periodic background runs;
// expiry-on-read already guarantees no stale reads without it.
func (m *Manager) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.hot {
		if now.After(e.expiresAt) {
			delete(m.hot, k)
			removed++
		}
	}
	return removed
}

// Stats returns the hot tier occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Entries: len(m.hot), Capacity: m.capacity}
}
