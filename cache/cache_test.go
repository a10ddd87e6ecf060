package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time          { return c.current }
func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestManager(capacity int, ttl time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(capacity, ttl)
	m.now = clock.now
	return m, clock
}

func TestGetHotHitsBeforeTTLAndMissesAfter(t *testing.T) {
	m, clock := newTestManager(10, 10*time.Minute)

	m.SetHot("pair:1:a-b", "value")

	clock.advance(5 * time.Minute)
	v, ok := m.GetHot("pair:1:a-b")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	clock.advance(6 * time.Minute)
	_, ok = m.GetHot("pair:1:a-b")
	assert.False(t, ok)

	// Expiry-on-read removed the entry, not just hid it.
	assert.Equal(t, 0, m.Stats().Entries)
}

func TestSetHotEvictsOldestTenthWhenFull(t *testing.T) {
	m, clock := newTestManager(100, time.Hour)

	for i := 0; i < 100; i++ {
		m.SetHot(fmt.Sprintf("key-%03d", i), i)
		clock.advance(time.Second) // staggered expiries, oldest first
	}
	assert.Equal(t, 100, m.Stats().Entries)

	m.SetHot("overflow", "x")

	// 10% of capacity evicted, then one insert.
	assert.Equal(t, 91, m.Stats().Entries)

	// The oldest entries went first; the newest survived.
	_, ok := m.GetHot("key-000")
	assert.False(t, ok)
	_, ok = m.GetHot("key-009")
	assert.False(t, ok)
	_, ok = m.GetHot("key-010")
	assert.True(t, ok)
	_, ok = m.GetHot("key-099")
	assert.True(t, ok)
}

func TestOverwritingExistingKeyDoesNotEvict(t *testing.T) {
	m, _ := newTestManager(2, time.Hour)
	m.SetHot("a", 1)
	m.SetHot("b", 2)
	m.SetHot("a", 3)

	assert.Equal(t, 2, m.Stats().Entries)
	v, ok := m.GetHot("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCleanExpiredReportsCount(t *testing.T) {
	m, clock := newTestManager(10, 10*time.Minute)

	m.SetHot("old-1", 1)
	m.SetHot("old-2", 2)
	clock.advance(8 * time.Minute)
	m.SetHot("fresh", 3)
	clock.advance(4 * time.Minute)

	assert.Equal(t, 2, m.CleanExpired())
	assert.Equal(t, 1, m.Stats().Entries)
	assert.Equal(t, 0, m.CleanExpired())
}

func TestDeleteHot(t *testing.T) {
	m, _ := newTestManager(10, time.Hour)
	m.SetHot("k", "v")
	assert.True(t, m.HasHot("k"))
	m.DeleteHot("k")
	assert.False(t, m.HasHot("k"))
}

func TestWarmAndColdTiersDefaultToMisses(t *testing.T) {
	m, _ := newTestManager(10, time.Hour)

	m.SetWarm("k", "v")
	_, ok := m.GetWarm("k")
	assert.False(t, ok)

	m.SetCold("k", "v")
	_, ok = m.GetCold("k")
	assert.False(t, ok)
}

// mapTier is a trivial in-memory Tier for plugging into warm/cold slots.
type mapTier map[string]any

func (t mapTier) Get(key string) (any, bool) { v, ok := t[key]; return v, ok }
func (t mapTier) Set(key string, value any)  { t[key] = value }
func (t mapTier) Delete(key string)          { delete(t, key) }

func TestConfiguredWarmTierServesReads(t *testing.T) {
	m, _ := newTestManager(10, time.Hour)
	m.SetWarmTier(mapTier{})

	m.SetWarm("k", "v")
	v, ok := m.GetWarm("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
