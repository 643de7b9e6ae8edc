package index

import "testing"

func TestResolveChunkSizeBypassesBelowThreshold(t *testing.T) {
	got := resolveChunkSize(42, 1000, 0, 0)
	if got != 42 {
		t.Fatalf("expected small-input bypass to use N=42, got %d", got)
	}
}

func TestResolveChunkSizeClampsRange(t *testing.T) {
	if got := resolveChunkSize(10000, 50, 0, 0); got != minChunkSize {
		t.Fatalf("expected clamp to minChunkSize=%d, got %d", minChunkSize, got)
	}
	if got := resolveChunkSize(10000, 5000, 0, 0); got != maxChunkSize {
		t.Fatalf("expected clamp to maxChunkSize=%d, got %d", maxChunkSize, got)
	}
}

func TestResolveChunkSizeMemoryCap(t *testing.T) {
	// 64 mels * 1001 time steps * 4 bytes/float ~= 256256 bytes/item.
	melFloats := 64 * 1001
	capBytes := 10 * melFloats * 4 // budget for ~10 items
	got := resolveChunkSize(10000, 3000, capBytes, melFloats)
	if got != 10 {
		t.Fatalf("expected memory cap to clamp chunk size to 10, got %d", got)
	}
}

func TestResolveChunkSizeSmallThresholdOverridesMemoryCap(t *testing.T) {
	// Open Question #1: smallThreshold wins even if it would exceed the
	// memory cap, since the cap protects long runs, not a handful of files.
	melFloats := 64 * 1001
	capBytes := 1 * melFloats * 4 // budget for 1 item only
	got := resolveChunkSize(400, 3000, capBytes, melFloats)
	if got != 400 {
		t.Fatalf("expected smallThreshold bypass (400), got %d", got)
	}
}

func TestPartitionPreservesOrderAndSize(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}
	chunks := partition(paths, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if len(chunks[i]) != len(want[i]) {
			t.Fatalf("chunk %d: expected len %d, got %d", i, len(want[i]), len(chunks[i]))
		}
		for j := range want[i] {
			if chunks[i][j] != want[i][j] {
				t.Fatalf("chunk %d item %d: expected %s, got %s", i, j, want[i][j], chunks[i][j])
			}
		}
	}
}
