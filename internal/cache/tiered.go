package cache

import "time"

// Tiered is a two-tier cache: a small, short-TTL L1 backed by a larger,
// longer-TTL L2. Gets that hit L2 are promoted into L1.
type Tiered[K comparable, V any] struct {
	l1 *LRU[K, V]
	l2 *LRU[K, V]
}

// TieredConfig sizes the two tiers. A zero TTL means no expiration.
type TieredConfig struct {
	L1Size int
	L2Size int
	L1TTL  time.Duration
	L2TTL  time.Duration
}

// NewTiered builds a tiered cache from cfg. Unset sizes default to 100
// (L1) and 1000 (L2); TTLs are taken as given, so a zero TTL leaves that
// tier without expiration.
func NewTiered[K comparable, V any](cfg TieredConfig) *Tiered[K, V] {
	if cfg.L1Size <= 0 {
		cfg.L1Size = 100
	}
	if cfg.L2Size <= 0 {
		cfg.L2Size = 1000
	}
	return &Tiered[K, V]{
		l1: NewLRU[K, V](cfg.L1Size, cfg.L1TTL, nil),
		l2: NewLRU[K, V](cfg.L2Size, cfg.L2TTL, nil),
	}
}

// Get checks L1 first, then L2, promoting an L2 hit into L1.
func (t *Tiered[K, V]) Get(key K) (V, bool) {
	if v, ok := t.l1.Get(key); ok {
		return v, true
	}
	v, ok := t.l2.Get(key)
	if ok {
		t.l1.Set(key, v)
	}
	return v, ok
}

// Set stores value in L2, or in L1 directly when hot is true.
func (t *Tiered[K, V]) Set(key K, value V, hot bool) {
	if hot {
		t.l1.Set(key, value)
	} else {
		t.l2.Set(key, value)
	}
}

// Delete removes key from both tiers, reporting whether either held it.
func (t *Tiered[K, V]) Delete(key K) bool {
	l1 := t.l1.Delete(key)
	l2 := t.l2.Delete(key)
	return l1 || l2
}

// Clear empties both tiers.
func (t *Tiered[K, V]) Clear() {
	t.l1.Clear()
	t.l2.Clear()
}

// Items returns a merged snapshot of both tiers, L1 entries taking
// precedence over stale L2 copies of the same key.
func (t *Tiered[K, V]) Items() map[K]V {
	out := t.l2.Items()
	for k, v := range t.l1.Items() {
		out[k] = v
	}
	return out
}

// Stats reports combined hit/miss/eviction counters across both tiers.
func (t *Tiered[K, V]) Stats() Snapshot {
	l1, l2 := t.l1.Stats.Snapshot(), t.l2.Stats.Snapshot()
	return Snapshot{
		Hits:      l1.Hits + l2.Hits,
		Misses:    l1.Misses + l2.Misses,
		Evictions: l1.Evictions + l2.Evictions,
	}
}
