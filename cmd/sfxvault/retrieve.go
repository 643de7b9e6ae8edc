package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/retrieval"
	"github.com/arek-soma/sfxvault/internal/search"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Run hybrid lexical+semantic retrieval with RRF fusion (spec §4.9, C9)",
	Long: `Dispatches the lexical query engine and, when a query embedding is
supplied, a brute-force cosine-similarity semantic retriever over stored
embeddings, concurrently for hybrid mode, then fuses the two ranked lists
with Reciprocal Rank Fusion.

A true approximate nearest-neighbor index and a text-to-embedding encoder
are external collaborators (spec §1); this command accepts a precomputed
query embedding via --embedding-file (a JSON array of float32) as their
stand-in, or runs lexical-only when none is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().String("mode", "hybrid", "retrieval mode: lexical, semantic, or hybrid")
	retrieveCmd.Flags().Int("top-k", 20, "number of results to return")
	retrieveCmd.Flags().Float64("rrf-k", 60, "RRF rank-fusion constant")
	retrieveCmd.Flags().Float64("lexical-weight", 1.0, "lexical retriever weight in fusion")
	retrieveCmd.Flags().Float64("semantic-weight", 1.0, "semantic retriever weight in fusion")
	retrieveCmd.Flags().String("embedding-file", "", "JSON file containing the query's precomputed embedding vector")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dbPath := viper.GetString("db")
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	modeStr, _ := cmd.Flags().GetString("mode")
	topK, _ := cmd.Flags().GetInt("top-k")
	rrfK, _ := cmd.Flags().GetFloat64("rrf-k")
	lexWeight, _ := cmd.Flags().GetFloat64("lexical-weight")
	semWeight, _ := cmd.Flags().GetFloat64("semantic-weight")
	embeddingFile, _ := cmd.Flags().GetString("embedding-file")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	queryText := args[0]
	engine := search.NewEngine(db)

	lexical := func(ctx context.Context, queryText string, k int) ([]retrieval.RankedItem, error) {
		q := search.Parse(queryText)
		result, err := engine.Search(q, search.Filters{}, k, 0)
		if err != nil {
			return nil, err
		}
		items := make([]retrieval.RankedItem, 0, len(result.Records))
		for _, r := range result.Records {
			items = append(items, retrieval.RankedItem{
				Key:   strconv.FormatInt(r.ID, 10),
				Score: result.Scores[r.ID],
			})
		}
		return items, nil
	}

	var queryEmbedding []float32
	if embeddingFile != "" {
		data, err := os.ReadFile(embeddingFile)
		if err != nil {
			return fmt.Errorf("failed to read embedding file: %w", err)
		}
		if err := json.Unmarshal(data, &queryEmbedding); err != nil {
			return fmt.Errorf("failed to parse embedding file: %w", err)
		}
	}

	semantic := func(ctx context.Context, queryText string, k int) ([]retrieval.RankedItem, error) {
		if len(queryEmbedding) == 0 {
			return nil, nil
		}
		return bruteForceKNN(db, queryEmbedding, k)
	}

	orch := retrieval.New(lexical, semantic)
	mode := retrieval.Mode(modeStr)
	result, err := orch.Retrieve(ctx, queryText, retrieval.Plan{
		Mode:           mode,
		TopK:           topK,
		RRFK:           rrfK,
		LexicalWeight:  lexWeight,
		SemanticWeight: semWeight,
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	util.InfoLog("lexical=%dms semantic=%dms fuse=%dms total=%dms",
		result.Observation.LexicalMs, result.Observation.SemanticMs, result.Observation.FuseMs, result.Observation.TotalMs)

	for _, item := range result.Items {
		id, err := strconv.ParseInt(item.Key, 10, 64)
		if err != nil {
			continue
		}
		r, err := db.GetByID(id)
		if err != nil || r == nil {
			continue
		}
		fmt.Printf("%8.4f  %s\n", item.Score, r.Path)
	}

	return nil
}

// bruteForceKNN ranks every embedded record by cosine similarity to query.
// Since both sides are L2-normalized (spec §3 invariant), cosine similarity
// reduces to a plain dot product (spec GLOSSARY "L2 normalization").
func bruteForceKNN(db *store.Store, query []float32, k int) ([]retrieval.RankedItem, error) {
	all, err := db.AllEmbeddings()
	if err != nil {
		return nil, err
	}

	items := make([]retrieval.RankedItem, 0, len(all))
	for id, vec := range all {
		if len(vec) != len(query) {
			continue
		}
		var dot float64
		for i := range vec {
			dot += float64(vec[i]) * float64(query[i])
		}
		items = append(items, retrieval.RankedItem{
			Key:   strconv.FormatInt(id, 10),
			Score: dot,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Key < items[j].Key
	})

	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items, nil
}
