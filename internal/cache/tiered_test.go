package cache

import "testing"

func TestTieredSetHotAndGet(t *testing.T) {
	c := NewTiered[string, int](TieredConfig{})
	c.Set("a", 1, true)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected hot-set value to be retrievable, got %d ok=%v", v, ok)
	}
}

func TestTieredPromotesFromL2(t *testing.T) {
	c := NewTiered[string, int](TieredConfig{})
	c.Set("a", 1, false)

	if _, ok := c.l1.Get("a"); ok {
		t.Fatal("expected a to not be in L1 before any Get")
	}

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected L2 value, got %d ok=%v", v, ok)
	}

	if _, ok := c.l1.Get("a"); !ok {
		t.Error("expected a to be promoted into L1 after L2 hit")
	}
}

func TestTieredDeleteAndClear(t *testing.T) {
	c := NewTiered[string, int](TieredConfig{})
	c.Set("a", 1, true)
	c.Set("b", 2, false)

	if !c.Delete("a") {
		t.Error("expected delete to find a in L1")
	}
	if !c.Delete("b") {
		t.Error("expected delete to find b in L2")
	}
	if c.Delete("missing") {
		t.Error("expected delete of missing key to report false")
	}

	c.Set("c", 3, true)
	c.Clear()
	if _, ok := c.Get("c"); ok {
		t.Error("expected clear to remove all entries")
	}
}
