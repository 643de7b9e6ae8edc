package translate

import (
	"context"
	"fmt"
	"sync"
)

const (
	minChunkSize     = 5
	maxChunkSize     = 200
	defaultChunkSize = 40
	defaultConcurrency = 4
)

// ProgressFunc reports overall batch progress (spec §4.10 step 5):
// completed filenames out of total, across every in-flight chunk.
type ProgressFunc func(completed, total int)

// Config configures one batch translation run (spec §4.10/§6).
type Config struct {
	ChunkSize   int
	Concurrency int
	SourceLang  string
	TargetLang  string
	Progress    ProgressFunc
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkSize < minChunkSize {
		c.ChunkSize = minChunkSize
	}
	if c.ChunkSize > maxChunkSize {
		c.ChunkSize = maxChunkSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.SourceLang == "" {
		c.SourceLang = "en"
	}
	if c.TargetLang == "" {
		c.TargetLang = "en"
	}
}

// Controller chunks a filename batch, dispatches chunks to a Provider with
// bounded concurrency, and reassembles results in input order (spec
// §4.10). Grounded on internal/musicbrainz/client.go's rate-limited
// client usage pattern, generalized from a single-request client to a
// chunk-parallel batch controller.
type Controller struct {
	provider Provider
}

// NewController builds a Controller over the given Provider.
func NewController(provider Provider) *Controller {
	return &Controller{provider: provider}
}

// Run translates every filename in names, chunked per cfg.ChunkSize and
// dispatched with cfg.Concurrency workers. The returned slice always has
// exactly len(names) entries in the same order as names (spec §8
// invariant 2) — a chunk's exhausted-retry fallback degrades that
// chunk's entries to identity translations rather than shrinking the
// result or aborting the run (spec §4.10 step 4, §7).
func (c *Controller) Run(ctx context.Context, names []string, cfg Config) ([]Item, Usage, error) {
	cfg.applyDefaults()
	if len(names) == 0 {
		return nil, Usage{}, nil
	}

	chunks := chunkNames(names, cfg.ChunkSize)
	results := make([][]Item, len(chunks))

	var (
		mu        sync.Mutex
		totalUsage Usage
		completed int
		firstErr  error
	)
	total := len(names)

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

	for idx, chunk := range chunks {
		idx, chunk := idx, chunk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				results[idx] = identityItems(chunk)
				return
			default:
			}

			progress := func(partial, chunkTotal int) {
				if cfg.Progress == nil {
					return
				}
				mu.Lock()
				cfg.Progress(completed+partial, total)
				mu.Unlock()
			}

			items, usage, err := c.provider.Translate(ctx, chunk, cfg.SourceLang, cfg.TargetLang, progress)
			if err != nil {
				// Provider.Translate already falls back to identity
				// translation internally on exhausted retries; a
				// non-nil error here means something unrecoverable
				// at the transport layer (e.g. context cancellation
				// observed mid-request).
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				items = identityItems(chunk)
			}

			mu.Lock()
			results[idx] = items
			completed += len(chunk)
			totalUsage.PromptTokens += usage.PromptTokens
			totalUsage.CompletionTokens += usage.CompletionTokens
			totalUsage.TotalTokens += usage.TotalTokens
			if cfg.Progress != nil {
				cfg.Progress(completed, total)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	out := make([]Item, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	if len(out) != total {
		return out, totalUsage, fmt.Errorf("translate: result count %d does not match input count %d", len(out), total)
	}
	return out, totalUsage, firstErr
}

func chunkNames(names []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(names); i += size {
		end := i + size
		if end > len(names) {
			end = len(names)
		}
		chunks = append(chunks, names[i:end])
	}
	return chunks
}
