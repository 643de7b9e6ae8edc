package cache

import (
	"testing"
	"time"
)

func TestLRUGetSetBasic(t *testing.T) {
	c := NewLRU[string, int](2, 0, nil)
	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected a=1, got %d ok=%v", v, ok)
	}

	snap := c.Stats.Snapshot()
	if snap.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", snap.Hits)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](2, 0, func(k string, v int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // promote a, b is now least recently used
	c.Set("c", 3)

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected b to be evicted, got %v", evicted)
	}
	if c.Contains("b") {
		t.Error("expected b to be gone")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Error("expected a and c to remain")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[string, int](10, 10*time.Millisecond, nil)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("a")
	if ok {
		t.Error("expected expired entry to miss")
	}

	snap := c.Stats.Snapshot()
	if snap.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", snap.Misses)
	}
}

func TestLRUCleanupExpired(t *testing.T) {
	c := NewLRU[string, int](10, 10*time.Millisecond, nil)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	n := c.CleanupExpired()
	if n != 2 {
		t.Errorf("expected 2 expired entries swept, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache after cleanup, got %d", c.Len())
	}
}

func TestLRUDeleteAndClear(t *testing.T) {
	c := NewLRU[string, int](10, 0, nil)
	c.Set("a", 1)

	if !c.Delete("a") {
		t.Error("expected delete to report found")
	}
	if c.Delete("a") {
		t.Error("expected second delete to report not found")
	}

	c.Set("b", 2)
	c.Set("c", 3)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty after clear, got %d", c.Len())
	}
	snap := c.Stats.Snapshot()
	if snap.Hits != 0 || snap.Misses != 0 || snap.Evictions != 0 {
		t.Errorf("expected stats reset after clear, got %+v", snap)
	}
}
