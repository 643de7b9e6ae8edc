package index

import (
	"context"
	"time"

	"github.com/arek-soma/sfxvault/internal/util"
)

// Preprocessor turns a raw audio path into a mel spectrogram. Each worker
// owns exactly one Preprocessor instance for its whole lifetime — per spec
// §4.8/§5, per-worker preprocessor (and optional inference-graph) state is
// never shared across workers.
type Preprocessor interface {
	Preprocess(ctx context.Context, path string) ([][]float32, error)
}

// PreprocessorFactory builds a fresh, independent Preprocessor.
// preprocessChunk calls it once per worker when a chunk's pool starts,
// before any job is handed out; construction is not deferred to a worker's
// first job, so workers that end up idle still get one built.
type PreprocessorFactory func() (Preprocessor, error)

// melResult pairs a path with its mel spectrogram, in the caller's original
// input order via its index.
type melResult struct {
	index int
	path  string
	mel   [][]float32
	ok    bool
}

// preprocessChunk runs one chunk's preprocessing across numWorkers workers
// (goroutines acting as the "OS-isolated execution contexts" the spec calls
// for — see DESIGN.md for why goroutines with per-worker-only state satisfy
// the "no shared mutable state" contract spec §9 allows as a substitute).
// Results preserve input order; a per-file timeout or extraction error
// simply drops that file from the output (spec §4.8 step 2).
func preprocessChunk(ctx context.Context, paths []string, numWorkers int, perFileTimeout time.Duration, newPreprocessor PreprocessorFactory) []melResult {
	if numWorkers < 1 {
		numWorkers = 1
	}

	// Validate the pool can actually be built before committing to it: try
	// constructing one Preprocessor up front. If that fails, the pool
	// cannot be created at all and we fall back to single-threaded
	// processing of this chunk (spec §4.8 failure semantics).
	probe, err := newPreprocessor()
	if err != nil {
		util.WarnLog("index: worker pool unavailable (%v), falling back to single-threaded chunk processing", err)
		return preprocessSingleThreaded(ctx, paths, perFileTimeout, probe, newPreprocessor)
	}

	jobs := make(chan int, len(paths))
	for i := range paths {
		jobs <- i
	}
	close(jobs)

	results := make([]melResult, len(paths))
	done := make(chan struct{}, numWorkers)

	runWorker := func(pp Preprocessor) {
		defer func() { done <- struct{}{} }()
		for i := range jobs {
			results[i] = runOneFile(ctx, paths[i], i, perFileTimeout, pp)
		}
	}

	go runWorker(probe)
	for w := 1; w < numWorkers; w++ {
		pp, err := newPreprocessor()
		if err != nil {
			util.WarnLog("index: worker %d failed to initialize (%v), reducing pool", w, err)
			done <- struct{}{}
			continue
		}
		go runWorker(pp)
	}

	for w := 0; w < numWorkers; w++ {
		<-done
	}

	return results
}

// preprocessSingleThreaded handles the pool-creation-failed path: it
// processes every file sequentially, reusing probe if it was built before
// the fallback was triggered, or trying newPreprocessor once more for the
// whole chunk otherwise; if that also fails, every file is reported failed.
func preprocessSingleThreaded(ctx context.Context, paths []string, perFileTimeout time.Duration, probe Preprocessor, newPreprocessor PreprocessorFactory) []melResult {
	pp := probe
	if pp == nil {
		var err error
		pp, err = newPreprocessor()
		if err != nil {
			util.ErrorLog("index: single-threaded fallback also failed to initialize a preprocessor: %v", err)
			results := make([]melResult, len(paths))
			for i, p := range paths {
				results[i] = melResult{index: i, path: p, ok: false}
			}
			return results
		}
	}

	results := make([]melResult, len(paths))
	for i, p := range paths {
		results[i] = runOneFile(ctx, p, i, perFileTimeout, pp)
	}
	return results
}

// runOneFile preprocesses a single file under a per-file timeout (spec
// §4.8 step 2, 90s per spec §5). A timeout is logged at warn and treated
// as a skip; any other extraction error is logged at debug and also
// treated as a skip — neither is fatal to the chunk.
func runOneFile(ctx context.Context, path string, idx int, timeout time.Duration, pp Preprocessor) melResult {
	fileCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		mel [][]float32
		err error
	}
	out := make(chan outcome, 1)

	go func() {
		mel, err := pp.Preprocess(fileCtx, path)
		out <- outcome{mel: mel, err: err}
	}()

	select {
	case o := <-out:
		if o.err != nil {
			util.DebugLog("index: skipping %s: %v", path, o.err)
			return melResult{index: idx, path: path, ok: false}
		}
		return melResult{index: idx, path: path, mel: o.mel, ok: true}
	case <-fileCtx.Done():
		util.WarnLog("index: timed out preprocessing %s after %s", path, timeout)
		return melResult{index: idx, path: path, ok: false}
	}
}
