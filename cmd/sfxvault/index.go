package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/index"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Compute audio embeddings for every registry record missing one",
	Long: `Drives the chunked indexing orchestrator (spec §4.8, C8) over every
record in the registry that does not yet have an embedding: per-worker
deterministic mel-spectrogram preprocessing, GPU-batched inference against
an external embedding service, and L2 normalization, with per-file timeout
isolation and per-chunk failure isolation.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().String("preprocess-config", "configs/clap_preprocess.json", "preprocessor config JSON (spec §6)")
	indexCmd.Flags().String("inference-endpoint", "", "HTTP endpoint for the external inference primitive (required)")
	indexCmd.Flags().Int("chunk-size", 0, "chunk size before clamping to [100,3000] (0 = default 1000)")
	indexCmd.Flags().Int("memory-cap-mb", 0, "optional memory cap in MB, further clamps chunk size")
	indexCmd.Flags().Int("workers", 0, "worker pool size (0 = GOMAXPROCS)")
	indexCmd.Flags().Int("batch-size", 32, "GPU inference batch size")
	indexCmd.Flags().Int("n-mels", 64, "mel bin count, used for the memory-cap budget calculation")
	indexCmd.Flags().Int("time-steps", 1001, "mel time-step count, used for the memory-cap budget calculation")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	endpoint, _ := cmd.Flags().GetString("inference-endpoint")
	if endpoint == "" {
		return fmt.Errorf("--inference-endpoint is required (the inference primitive is an external collaborator, spec §6)")
	}
	preprocessCfgPath, _ := cmd.Flags().GetString("preprocess-config")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	memoryCapMB, _ := cmd.Flags().GetInt("memory-cap-mb")
	workers, _ := cmd.Flags().GetInt("workers")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	nMels, _ := cmd.Flags().GetInt("n-mels")
	timeSteps, _ := cmd.Flags().GetInt("time-steps")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	records, _, err := db.List(store.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	existing, err := db.AllEmbeddings()
	if err != nil {
		return fmt.Errorf("failed to load existing embeddings: %w", err)
	}

	pathToID := make(map[string]int64, len(records))
	var paths []string
	for _, r := range records {
		if _, ok := existing[r.ID]; ok {
			continue
		}
		pathToID[r.Path] = r.ID
		paths = append(paths, r.Path)
	}

	if len(paths) == 0 {
		util.SuccessLog("Nothing to index: every record already has an embedding")
		return nil
	}

	util.InfoLog("Indexing %d of %d records (remainder already embedded)", len(paths), len(records))

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.Default(100, "indexing")
	}

	orch := index.New(index.Config{
		ChunkSize:        chunkSize,
		MemoryCapBytes:   memoryCapMB * 1024 * 1024,
		MelFloatsPerItem: nMels * timeSteps,
		CPUProcesses:     workers,
		BatchSize:        batchSize,
		NewPreprocessor:  index.NewCLAPPreprocessorFactory(preprocessCfgPath),
		Inferencer:       index.NewHTTPInferencer(endpoint, 120*time.Second),
		Progress: func(progress float64, message string) {
			if bar != nil {
				bar.Set(int(progress * 100))
			}
			if verbose {
				util.DebugLog("[%5.1f%%] %s", progress*100, message)
			}
		},
	})

	start := time.Now()
	embeddings, err := orch.Run(ctx, paths)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	duration := time.Since(start)

	var stored, skipped int
	for path, vec := range embeddings {
		id, ok := pathToID[path]
		if !ok {
			continue
		}
		if err := db.PutEmbedding(id, vec); err != nil {
			util.WarnLog("failed to persist embedding for %s: %v", path, err)
			skipped++
			continue
		}
		stored++
	}
	skipped += len(paths) - len(embeddings)

	util.SuccessLog("Indexing complete in %v", duration.Round(time.Millisecond))
	util.InfoLog("  Embeddings stored: %d", stored)
	if skipped > 0 {
		util.WarnLog("  Files skipped (timeout, decode failure, or chunk-level inference failure): %d", skipped)
	}

	return nil
}
