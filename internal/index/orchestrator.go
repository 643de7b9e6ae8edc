// Package index implements the chunked, parallel indexing orchestrator
// (spec §4.8, C8): per-worker preprocessing with timeout isolation,
// GPU-batched inference, and L2 normalization, grounded on
// original_source/application/ai/clap_service.py's chunked batch modes and
// the teacher's internal/meta/extractor.go worker-pool + progress idiom.
package index

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/arek-soma/sfxvault/internal/util"
)

// defaultPerFileTimeout is the per-file preprocessing timeout (spec §5).
const defaultPerFileTimeout = 90 * time.Second

// ProgressFunc reports global progress in [0,1] plus a human-readable
// message (spec §4.8 "Progress reporting").
type ProgressFunc func(progress float64, message string)

// Config configures one Orchestrator run.
type Config struct {
	// ChunkSize is the configured chunk size before clamping (spec §4.8
	// step 1). Zero uses the package default of 1000.
	ChunkSize int
	// MemoryCapBytes, if > 0, further clamps the chunk size so that
	// chunk_size * MelFloatsPerItem * 4 bytes stays within budget.
	MemoryCapBytes int
	// MelFloatsPerItem is n_mels * time_steps, used only for the memory
	// cap computation above.
	MelFloatsPerItem int
	// CPUProcesses is the worker pool size. Zero defaults to a
	// recommendation based on host CPU count (GOMAXPROCS).
	CPUProcesses int
	// BatchSize is the GPU inference batch size B (spec §4.8 step 4).
	BatchSize int
	// PerFileTimeout overrides the 90s default (tests only).
	PerFileTimeout time.Duration

	NewPreprocessor PreprocessorFactory
	Inferencer      Inferencer
	Progress        ProgressFunc
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.CPUProcesses <= 0 {
		c.CPUProcesses = runtime.GOMAXPROCS(0)
		if c.CPUProcesses < 1 {
			c.CPUProcesses = 1
		}
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.PerFileTimeout <= 0 {
		c.PerFileTimeout = defaultPerFileTimeout
	}
}

// Orchestrator drives bulk ingestion of audio paths into normalized
// embeddings (spec §4.8).
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator. cfg.NewPreprocessor and cfg.Inferencer are
// required; New panics if either is nil, since there is no meaningful
// degraded mode without them.
func New(cfg Config) *Orchestrator {
	cfg.applyDefaults()
	if cfg.NewPreprocessor == nil {
		panic("index: Config.NewPreprocessor is required")
	}
	if cfg.Inferencer == nil {
		panic("index: Config.Inferencer is required")
	}
	return &Orchestrator{cfg: cfg}
}

func (o *Orchestrator) report(progress float64, message string) {
	if o.cfg.Progress != nil {
		o.cfg.Progress(progress, message)
	}
}

// Run preprocesses and embeds every path in paths, returning a
// path->embedding map that omits any file that failed, timed out, or
// belonged to a chunk whose batch inference failed outright (spec §4.8).
// Output order is not meaningful (it's a map); per-chunk processing order
// is preserved internally for determinism of the L2-normalize step.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (map[string][]float32, error) {
	if len(paths) == 0 {
		return map[string][]float32{}, nil
	}

	chunkSize := resolveChunkSize(len(paths), o.cfg.ChunkSize, o.cfg.MemoryCapBytes, o.cfg.MelFloatsPerItem)
	chunks := partition(paths, chunkSize)

	out := make(map[string][]float32, len(paths))
	for ci, chunk := range chunks {
		chunkStart := float64(ci) / float64(len(chunks))
		chunkEnd := float64(ci+1) / float64(len(chunks))

		embeds, err := o.runChunk(ctx, chunk, chunkStart, chunkEnd)
		if err != nil {
			// A chunk-level batch-inference failure discards that chunk's
			// surviving embeddings and the orchestrator moves on (spec
			// §4.8 failure semantics); there is no global rollback.
			util.ErrorLog("index: chunk %d/%d failed inference, dropping its embeddings: %v", ci+1, len(chunks), err)
			continue
		}
		for path, v := range embeds {
			out[path] = v
		}
	}

	o.report(1.0, "indexing complete")
	return out, nil
}

// band maps a chunk-local fraction f in [0,1] into the caller's global
// [start,end] progress band (spec §4.8 "Progress reporting").
func band(start, end, f float64) float64 {
	return start + f*(end-start)
}

// runChunk runs one chunk's full pipeline: parallel preprocess (0-40% of
// the chunk's band), batched inference (40-80%), L2 normalization
// (80-90%). Persistence (90-100%) is the caller's responsibility once Run
// returns results for this chunk's paths.
func (o *Orchestrator) runChunk(ctx context.Context, paths []string, start, end float64) (map[string][]float32, error) {
	results := preprocessChunk(ctx, paths, o.cfg.CPUProcesses, o.cfg.PerFileTimeout, o.cfg.NewPreprocessor)

	type survivor struct {
		path string
		mel  [][]float32
	}
	var survivors []survivor

	lastReportedTenth := -1
	for i, r := range results {
		if r.ok {
			survivors = append(survivors, survivor{path: r.path, mel: r.mel})
		}
		tenth := (i + 1) * 10 / len(results)
		if tenth != lastReportedTenth {
			lastReportedTenth = tenth
			o.report(band(start, end, 0.4*float64(i+1)/float64(len(results))),
				"preprocessing audio files")
		}
	}

	if len(survivors) == 0 {
		o.report(band(start, end, 0.9), "no survivors to embed in this chunk")
		return map[string][]float32{}, nil
	}

	embeddings := make(map[string][]float32, len(survivors))
	numBatches := (len(survivors) + o.cfg.BatchSize - 1) / o.cfg.BatchSize

	for b := 0; b < numBatches; b++ {
		lo := b * o.cfg.BatchSize
		hi := lo + o.cfg.BatchSize
		if hi > len(survivors) {
			hi = len(survivors)
		}

		mels := make([][][]float32, 0, hi-lo)
		for _, s := range survivors[lo:hi] {
			mels = append(mels, s.mel)
		}

		tensor, err := stackTensor(mels)
		if err != nil {
			return nil, err
		}
		vectors, err := o.cfg.Inferencer.RunAudioInference(tensor)
		if err != nil {
			return nil, err
		}
		if len(vectors) != hi-lo {
			return nil, errBatchSizeMismatch(len(vectors), hi-lo)
		}
		for i, v := range vectors {
			embeddings[survivors[lo+i].path] = v
		}

		o.report(band(start, end, 0.4+0.4*float64(b+1)/float64(numBatches)),
			"running inference")
	}

	for path, v := range embeddings {
		embeddings[path] = l2Normalize(v)
	}
	o.report(band(start, end, 0.9), "normalized embeddings")

	return embeddings, nil
}

// l2Normalize scales v to unit length, leaving a zero vector unchanged
// (spec §8 invariant 1, §8 "Normalization idempotence" law).
func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
