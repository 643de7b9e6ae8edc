package cache

import "sync"

// Stats tracks hit/miss/eviction counters for a cache, matching the
// CacheStats helper of the original cache implementations.
type Stats struct {
	mu        sync.Mutex
	hits      int64
	misses    int64
	evictions int64
}

func (s *Stats) recordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *Stats) recordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}

func (s *Stats) recordEviction() {
	s.mu.Lock()
	s.evictions++
	s.mu.Unlock()
}

func (s *Stats) reset() {
	s.mu.Lock()
	s.hits, s.misses, s.evictions = 0, 0, 0
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of a Stats counter set.
type Snapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 if there have been no lookups.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Hits: s.hits, Misses: s.misses, Evictions: s.evictions}
}
