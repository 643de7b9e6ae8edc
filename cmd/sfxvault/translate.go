package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/translate"
	"github.com/arek-soma/sfxvault/internal/util"
)

// ucsSystemPrompt is the translation provider's system prompt, scoped to
// the universal category system (spec GLOSSARY "UCS") filename structuring
// convention the translation feature is meant to produce.
const ucsSystemPrompt = `You translate sound-effect filenames from the source language to the
target language. Preserve any UCS-style category/subcategory/descriptor/
variation structure implied by the filename. Respond with a JSON object
shaped {"results": [{"original": "...", "translated": "...", "category":
"...", "subcategory": "...", "descriptor": "...", "variation": "..."}]}.
Omit category/subcategory/descriptor/variation fields you cannot infer.`

var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Batch-translate filenames via an AI translation provider (spec §4.10, C10)",
	Long: `Reads one filename per line from the given file (or the registry's
untranslated records when no file is given) and translates them with
bounded-concurrency HTTP requests, chunked, retried with backoff, and
falling back to identity translation when a chunk's retries are
exhausted. Results are written back to the registry by record path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().String("provider", "openai", "translation provider id")
	translateCmd.Flags().String("endpoint", "", "provider chat-completions endpoint (required)")
	translateCmd.Flags().String("api-key", "", "provider API key (falls back to env SFXVAULT_API_KEY)")
	translateCmd.Flags().String("model", "gpt-4o-mini", "provider model id")
	translateCmd.Flags().String("source-lang", "en", "source language code")
	translateCmd.Flags().String("target-lang", "ja", "target language code")
	translateCmd.Flags().Int("chunk-size", 40, "chunk size, clamped to [5,200]")
	translateCmd.Flags().Int("concurrency", 4, "bounded concurrency limit")
	translateCmd.Flags().Float64("requests-per-sec", 0, "provider request rate limit (0 disables)")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	endpoint, _ := cmd.Flags().GetString("endpoint")
	if endpoint == "" {
		return fmt.Errorf("--endpoint is required (spec §6 translation provider)")
	}
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("SFXVAULT_API_KEY")
	}
	providerName, _ := cmd.Flags().GetString("provider")
	modelID, _ := cmd.Flags().GetString("model")
	sourceLang, _ := cmd.Flags().GetString("source-lang")
	targetLang, _ := cmd.Flags().GetString("target-lang")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	rps, _ := cmd.Flags().GetFloat64("requests-per-sec")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	names, byName, err := translationInput(args, db)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		util.SuccessLog("Nothing to translate")
		return nil
	}

	provider := translate.NewHTTPProvider(translate.ProviderConfig{
		Name:           providerName,
		Endpoint:       endpoint,
		APIKey:         apiKey,
		Model:          modelID,
		JSONMode:       true,
		Streaming:      true,
		RequestsPerSec: rps,
		SystemPrompt:   ucsSystemPrompt,
	})
	controller := translate.NewController(provider)

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.Default(int64(len(names)), "translating")
	}

	start := time.Now()
	items, usage, err := controller.Run(ctx, names, translate.Config{
		ChunkSize:   chunkSize,
		Concurrency: concurrency,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		Progress: func(completed, total int) {
			if bar != nil {
				bar.Set(completed)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	duration := time.Since(start)

	util.SuccessLog("Translated %d filenames in %v (tokens: %d prompt, %d completion)",
		len(items), duration.Round(time.Millisecond), usage.PromptTokens, usage.CompletionTokens)

	if byName == nil {
		for _, item := range items {
			fmt.Printf("%s -> %s\n", item.Original, item.Translated)
		}
		return nil
	}

	var updated int
	for _, item := range items {
		r, ok := byName[item.Original]
		if !ok {
			continue
		}
		status := model.TranslationTranslated
		if item.Translated == item.Original {
			status = model.TranslationFailed
		}
		if err := db.UpdateTranslation(r.ID, status, item.Translated); err != nil {
			util.WarnLog("failed to store translation for %s: %v", r.Path, err)
			continue
		}
		updated++
	}
	util.InfoLog("Registry updated: %d records", updated)

	return nil
}

// translationInput resolves the filenames to translate: either one per
// line from a given file, or every registry record that is still
// untranslated or previously failed.
func translationInput(args []string, db *store.Store) ([]string, map[string]*model.AudioRecord, error) {
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		var names []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				names = append(names, line)
			}
		}
		return names, nil, scanner.Err()
	}

	records, _, err := db.List(store.ListOptions{
		Where: "translation_status IN (?, ?)",
		Args:  []any{model.TranslationUntranslated, model.TranslationFailed},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list untranslated records: %w", err)
	}

	names := make([]string, 0, len(records))
	byName := make(map[string]*model.AudioRecord, len(records))
	for _, r := range records {
		names = append(names, r.Filename)
		byName[r.Filename] = r
	}
	return names, byName, nil
}
