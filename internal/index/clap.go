package index

import (
	"context"

	"github.com/arek-soma/sfxvault/internal/preprocess"
)

// clapPreprocessor adapts internal/preprocess's pure functions to the
// Preprocessor interface the worker pool drives. One instance is built per
// worker via NewCLAPPreprocessorFactory (spec §4.7 final paragraph: "safely
// invocable from multiple worker processes"); it holds only the immutable
// config loaded once at construction, matching preprocess.Preprocess's own
// "pure, no process-global state after construction" contract.
type clapPreprocessor struct {
	cfg        *preprocess.Config
	sampleRate int
	maxSeconds float64
}

// NewCLAPPreprocessorFactory builds a PreprocessorFactory that loads
// cfgPath once per worker (spec §4.7: "loaded once per worker") and wraps
// the resulting config in a clapPreprocessor. Workers never share the
// *preprocess.Config they each load.
func NewCLAPPreprocessorFactory(cfgPath string) PreprocessorFactory {
	return func() (Preprocessor, error) {
		cfg, err := preprocess.LoadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		return &clapPreprocessor{
			cfg:        cfg,
			sampleRate: cfg.SamplingRate,
			maxSeconds: cfg.MaxLengthSeconds,
		}, nil
	}
}

// Preprocess loads at most the configured max-length window of path at the
// worker's sample rate and runs it through the deterministic CLAP-aligned
// transform (spec §4.7 steps 1-7).
func (p *clapPreprocessor) Preprocess(ctx context.Context, path string) ([][]float32, error) {
	raw, err := preprocess.Load(ctx, path, p.sampleRate, p.maxSeconds)
	if err != nil {
		return nil, err
	}
	return preprocess.Preprocess(raw, p.cfg)
}
