// Package retrieval implements the hybrid retrieval orchestrator (spec
// §4.9, C9): it runs a lexical and a semantic retriever — concurrently in
// hybrid mode — and fuses their rankings with Reciprocal Rank Fusion. There
// is no original_source analogue; this is built directly from spec law,
// using golang.org/x/sync/errgroup for the concurrent dispatch the way the
// wider example pack's concurrent services do.
package retrieval

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mode selects which retriever(s) a Plan dispatches (spec §4.9).
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Plan configures one Retrieve call.
type Plan struct {
	Mode           Mode
	TopK           int
	RRFK           float64
	LexicalWeight  float64
	SemanticWeight float64
}

func (p *Plan) applyDefaults() {
	if p.TopK <= 0 {
		p.TopK = 20
	}
	if p.RRFK <= 0 {
		p.RRFK = 60
	}
	if p.LexicalWeight == 0 && p.SemanticWeight == 0 {
		p.LexicalWeight, p.SemanticWeight = 1.0, 1.0
	}
}

// Retriever returns up to k ranked (key, score) pairs for queryText. Both
// the lexical retriever (backed by internal/search) and the semantic
// retriever (an external kNN index over embeddings) satisfy this shape.
type Retriever func(ctx context.Context, queryText string, k int) ([]RankedItem, error)

// Observation records the wall-clock timing of one Retrieve call (spec
// §4.9 step 1/2 "Record per-retriever wall-clock").
type Observation struct {
	LexicalMs  int64
	SemanticMs int64
	FuseMs     int64
	TotalMs    int64
}

// Result is the outcome of one Retrieve call.
type Result struct {
	Items       []RankedItem
	Observation Observation
}

// Orchestrator dispatches a lexical and a semantic retriever per a Plan's
// mode and RRF-fuses their results (spec §4.9).
type Orchestrator struct {
	Lexical  Retriever
	Semantic Retriever
}

// New builds an Orchestrator over the given retrievers.
func New(lexical, semantic Retriever) *Orchestrator {
	return &Orchestrator{Lexical: lexical, Semantic: semantic}
}

// Retrieve runs plan.Mode's retriever(s) and, for hybrid mode, fuses their
// rankings (spec §4.9 steps 1-3).
func (o *Orchestrator) Retrieve(ctx context.Context, queryText string, plan Plan) (*Result, error) {
	plan.applyDefaults()
	start := time.Now()

	var lexItems, semItems []RankedItem
	var obs Observation

	switch plan.Mode {
	case ModeLexical:
		t0 := time.Now()
		items, err := o.Lexical(ctx, queryText, plan.TopK)
		if err != nil {
			return nil, err
		}
		lexItems = items
		obs.LexicalMs = time.Since(t0).Milliseconds()

	case ModeSemantic:
		t0 := time.Now()
		items, err := o.Semantic(ctx, queryText, plan.TopK)
		if err != nil {
			return nil, err
		}
		semItems = items
		obs.SemanticMs = time.Since(t0).Milliseconds()

	case ModeHybrid:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			t0 := time.Now()
			items, err := o.Lexical(gctx, queryText, plan.TopK)
			obs.LexicalMs = time.Since(t0).Milliseconds()
			if err != nil {
				return err
			}
			lexItems = items
			return nil
		})
		g.Go(func() error {
			t0 := time.Now()
			items, err := o.Semantic(gctx, queryText, plan.TopK)
			obs.SemanticMs = time.Since(t0).Milliseconds()
			if err != nil {
				return err
			}
			semItems = items
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

	default:
		plan.Mode = ModeHybrid
		return o.Retrieve(ctx, queryText, plan)
	}

	var items []RankedItem
	if plan.Mode == ModeHybrid {
		t0 := time.Now()
		fused := fuse(lexItems, semItems, plan.RRFK, plan.LexicalWeight, plan.SemanticWeight)
		obs.FuseMs = time.Since(t0).Milliseconds()
		if len(fused) > plan.TopK {
			fused = fused[:plan.TopK]
		}
		items = fused
	} else if plan.Mode == ModeLexical {
		items = lexItems
	} else {
		items = semItems
	}

	obs.TotalMs = time.Since(start).Milliseconds()
	return &Result{Items: items, Observation: obs}, nil
}
