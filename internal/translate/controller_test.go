package translate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeProvider struct {
	mu          sync.Mutex
	inFlight    int32
	maxInFlight int32
	delay       time.Duration
	fail        func(batch []string) bool
}

func (f *fakeProvider) Translate(ctx context.Context, batch []string, sourceLang, targetLang string, progress ChunkProgressFunc) ([]Item, Usage, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if n > f.maxInFlight {
		f.maxInFlight = n
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil && f.fail(batch) {
		return identityItems(batch), Usage{}, nil
	}

	items := make([]Item, len(batch))
	for i, name := range batch {
		items[i] = Item{Original: name, Translated: name + "-zh"}
	}
	return items, Usage{PromptTokens: len(batch), CompletionTokens: len(batch), TotalTokens: 2 * len(batch)}, nil
}

func namesOf(n int, prefix string) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%03d", prefix, i)
	}
	return names
}

func TestControllerPreservesOrderAcrossChunks(t *testing.T) {
	names := namesOf(125, "f")
	provider := &fakeProvider{}
	c := NewController(provider)

	items, _, err := c.Run(context.Background(), names, Config{ChunkSize: 40, Concurrency: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != len(names) {
		t.Fatalf("expected %d items, got %d", len(names), len(items))
	}
	for i, name := range names {
		if items[i].Original != name {
			t.Fatalf("order mismatch at %d: got %q, want %q", i, items[i].Original, name)
		}
		if items[i].Translated != name+"-zh" {
			t.Fatalf("translation mismatch at %d: %+v", i, items[i])
		}
	}
}

func TestControllerRespectsConcurrencyBound(t *testing.T) {
	names := namesOf(200, "f")
	provider := &fakeProvider{delay: 20 * time.Millisecond}
	c := NewController(provider)

	_, _, err := c.Run(context.Background(), names, Config{ChunkSize: 10, Concurrency: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.maxInFlight > 3 {
		t.Fatalf("expected at most 3 concurrent chunk translations, observed %d", provider.maxInFlight)
	}
}

func TestControllerAggregatesUsage(t *testing.T) {
	names := namesOf(20, "f")
	provider := &fakeProvider{}
	c := NewController(provider)

	_, usage, err := c.Run(context.Background(), names, Config{ChunkSize: 5, Concurrency: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.PromptTokens != 20 || usage.CompletionTokens != 20 || usage.TotalTokens != 40 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestControllerClampsChunkSize(t *testing.T) {
	cfg := Config{ChunkSize: 1}
	cfg.applyDefaults()
	if cfg.ChunkSize != minChunkSize {
		t.Fatalf("expected chunk size clamped to %d, got %d", minChunkSize, cfg.ChunkSize)
	}

	cfg2 := Config{ChunkSize: 10000}
	cfg2.applyDefaults()
	if cfg2.ChunkSize != maxChunkSize {
		t.Fatalf("expected chunk size clamped to %d, got %d", maxChunkSize, cfg2.ChunkSize)
	}
}

func TestControllerReportsProgress(t *testing.T) {
	names := namesOf(30, "f")
	provider := &fakeProvider{}
	c := NewController(provider)

	var mu sync.Mutex
	var maxCompleted int
	progress := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		if completed > maxCompleted {
			maxCompleted = completed
		}
		if total != len(names) {
			t.Errorf("expected total %d, got %d", len(names), total)
		}
	}

	_, _, err := c.Run(context.Background(), names, Config{ChunkSize: 10, Concurrency: 2, Progress: progress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxCompleted != len(names) {
		t.Fatalf("expected progress to reach %d, got %d", len(names), maxCompleted)
	}
}

func TestControllerIsolatesChunkFailureAsIdentityFallback(t *testing.T) {
	names := namesOf(20, "f")
	provider := &fakeProvider{fail: func(batch []string) bool {
		return len(batch) > 0 && batch[0] == "f_010"
	}}
	c := NewController(provider)

	items, _, err := c.Run(context.Background(), names, Config{ChunkSize: 10, Concurrency: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("expected 20 items despite one chunk failing, got %d", len(items))
	}
	if items[10].Translated != "f_010" {
		t.Fatalf("expected identity fallback for the failing chunk, got %+v", items[10])
	}
	if items[0].Translated != "f_000-zh" {
		t.Fatalf("expected the non-failing chunk to translate normally, got %+v", items[0])
	}
}

func TestControllerEmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	c := NewController(provider)
	items, usage, err := c.Run(context.Background(), nil, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 || usage != (Usage{}) {
		t.Fatalf("expected empty result for empty input, got items=%v usage=%+v", items, usage)
	}
}
