package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/meta"
	"github.com/arek-soma/sfxvault/internal/report"
	"github.com/arek-soma/sfxvault/internal/scan"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover audio files under a library root and extract metadata",
	Long: `Scan a library root for audio files and extract their technical and
embedded metadata into the registry.

This performs two phases:
1. Discovery: walks the library root and finds every supported audio file.
2. Extraction: reads embedded tags and technical audio properties from each
   file and upserts the resulting records into the registry.

Re-running scan on a library root is safe; unchanged files are re-upserted
idempotently by path.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("root", "r", "", "library root to scan (required)")
	scanCmd.Flags().IntP("concurrency", "c", 8, "extraction concurrency")
	scanCmd.Flags().StringSlice("ext", nil, "additional file extensions to index beyond the default set")
	viper.BindPFlag("root", scanCmd.Flags().Lookup("root"))
	viper.BindPFlag("concurrency", scanCmd.Flags().Lookup("concurrency"))
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root := viper.GetString("root")
	if root == "" {
		return fmt.Errorf("library root is required (use --root/-r or set in config)")
	}

	concurrency := viper.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = 8
	}

	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")

	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return fmt.Errorf("library root does not exist: %s", root)
	}

	util.InfoLog("Opening registry: %s", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	logLevel := report.LevelInfo
	if quiet {
		logLevel = report.LevelWarning
	} else if verbose {
		logLevel = report.LevelDebug
	}
	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	util.InfoLog("=== Phase 1: File Discovery ===")
	util.InfoLog("Root: %s", root)

	extraExts, _ := cmd.Flags().GetStringSlice("ext")
	scanner := scan.New(scan.Config{
		AdditionalExts: extraExts,
		ShowProgress:   !quiet,
	})

	start := time.Now()
	paths, err := scanner.Discover(ctx, root)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	discoverDuration := time.Since(start)

	util.SuccessLog("Discovery complete in %v", discoverDuration.Round(time.Millisecond))
	util.InfoLog("  Files discovered: %d", len(paths))

	util.InfoLog("")
	util.InfoLog("=== Phase 2: Metadata Extraction ===")

	if !meta.CheckFFprobeAvailable() {
		util.WarnLog("ffprobe not found in PATH - using tag library only")
		util.WarnLog("Install ffmpeg for best results: https://ffmpeg.org/")
	}

	extractor := meta.New(&meta.Config{Store: db, Concurrency: concurrency})

	extractStart := time.Now()
	result, err := extractor.Extract(ctx, paths)
	if err != nil {
		return fmt.Errorf("metadata extraction failed: %w", err)
	}
	extractDuration := time.Since(extractStart)

	util.SuccessLog("Extraction complete in %v", extractDuration.Round(time.Millisecond))
	util.InfoLog("  Files processed: %d", result.Processed)
	util.InfoLog("  Success: %d", result.Success)
	if len(result.Errors) > 0 {
		util.WarnLog("  Errors: %d", len(result.Errors))
		for _, e := range result.Errors {
			logger.LogTransientIO(root, e)
		}
	}

	total, err := db.CountRecords("")
	if err == nil {
		util.InfoLog("")
		util.InfoLog("Registry now holds %d records", total)
	}

	util.InfoLog("")
	util.InfoLog("Total time: %v", (discoverDuration + extractDuration).Round(time.Millisecond))
	util.InfoLog("Next step: sfxvault index --inference-endpoint <url>")

	return nil
}
