package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/report"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the spec §7 diagnostic report (registry coverage + logged issues)",
	Long: `Summarizes registry coverage (translation status, embedding
coverage) and, if --event-log names a JSONL event log produced by scan or
index, aggregates every logged issue by kind with its severity and
recovery action (spec §7).`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("event-log", "", "path to a JSONL event log (optional)")
	reportCmd.Flags().String("out", "", "write the report as Markdown to this path instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	dbPath := viper.GetString("db")
	eventLogPath, _ := cmd.Flags().GetString("event-log")
	outPath, _ := cmd.Flags().GetString("out")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	summary, err := report.GenerateSummaryReport(db, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.DatabasePath = dbPath

	if outPath != "" {
		if err := report.WriteMarkdownReport(summary, outPath); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		util.SuccessLog("Report written to %s", outPath)
		return nil
	}

	util.InfoLog("Registry: %s", dbPath)
	util.InfoLog("  Total records:       %d", summary.TotalRecords)
	util.InfoLog("  With embedding:      %d", summary.RecordsWithEmbedding)
	util.InfoLog("  Translated:          %d", summary.RecordsTranslated)
	util.InfoLog("  Untranslated:        %d", summary.RecordsUntranslated)
	if summary.RecordsFailedTransl > 0 {
		util.WarnLog("  Translation failed:  %d", summary.RecordsFailedTransl)
	}

	if len(summary.Kinds) > 0 {
		util.InfoLog("")
		util.InfoLog("Detected issues:")
		for _, k := range summary.Kinds {
			util.InfoLog("  [%s] %s: %d (%s)", k.Level, k.Kind, k.Count, k.Recovery)
		}
	}
	if len(summary.TopErrors) > 0 {
		util.InfoLog("")
		util.InfoLog("Top errors:")
		for _, e := range summary.TopErrors {
			util.InfoLog("  %4d  %s", e.Count, e.Error)
		}
	}

	return nil
}
