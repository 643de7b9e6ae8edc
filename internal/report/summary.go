package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
)

// SummaryReport is the spec §7 diagnostic report: registry coverage
// statistics plus every detected issue grouped by kind, with its severity
// and the recovery action taken.
type SummaryReport struct {
	GeneratedAt time.Time

	TotalRecords         int
	RecordsWithEmbedding int
	RecordsTranslated    int
	RecordsUntranslated  int
	RecordsFailedTransl  int

	Kinds     []EventKindSummary
	TopErrors []ErrorSummary

	DatabasePath string
	EventLogPath string
}

// EventKindSummary aggregates every logged event of one kind.
type EventKindSummary struct {
	Kind     EventKind
	Level    EventLevel
	Count    int
	Recovery string
}

// ErrorSummary represents a distinct error message with its occurrence count.
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport builds a diagnostic report from the registry and, if
// present, the run's JSONL event log (spec §7: "a diagnostic report on
// request summarizing detected issues with severity and recovery action").
func GenerateSummaryReport(db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
	}

	total, err := db.CountRecords("")
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	report.TotalRecords = total

	withEmbedding, err := db.CountEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}
	report.RecordsWithEmbedding = withEmbedding

	translated, err := db.CountRecords("translation_status = ?", model.TranslationTranslated)
	if err != nil {
		return nil, fmt.Errorf("failed to count translated records: %w", err)
	}
	report.RecordsTranslated = translated

	untranslated, err := db.CountRecords("translation_status = ?", model.TranslationUntranslated)
	if err != nil {
		return nil, fmt.Errorf("failed to count untranslated records: %w", err)
	}
	report.RecordsUntranslated = untranslated

	failed, err := db.CountRecords("translation_status = ?", model.TranslationFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed-translation records: %w", err)
	}
	report.RecordsFailedTransl = failed

	kinds, topErrors, err := gatherEvents(eventLogPath)
	if err != nil {
		return nil, err
	}
	report.Kinds = kinds
	report.TopErrors = topErrors

	return report, nil
}

// gatherEvents reads a JSONL event log (if it exists) and aggregates events
// by kind and distinct error message. A missing log path yields an empty,
// non-error report — event logging is opt-in per run.
func gatherEvents(eventLogPath string) ([]EventKindSummary, []ErrorSummary, error) {
	if eventLogPath == "" {
		return nil, nil, nil
	}

	f, err := os.Open(eventLogPath)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	counts := make(map[EventKind]*EventKindSummary)
	errorCounts := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // a malformed log line is itself a transient-IO-class condition; skip it
		}

		s, ok := counts[e.Kind]
		if !ok {
			s = &EventKindSummary{Kind: e.Kind, Level: e.Level, Recovery: e.Recovery}
			counts[e.Kind] = s
		}
		s.Count++

		if e.Error != "" {
			errorCounts[e.Error]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read event log: %w", err)
	}

	kinds := make([]EventKindSummary, 0, len(counts))
	for _, s := range counts {
		kinds = append(kinds, *s)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Count > kinds[j].Count })

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for msg, count := range errorCounts {
		errors = append(errors, ErrorSummary{Error: msg, Count: count})
	}
	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})
	if len(errors) > 10 {
		errors = errors[:10]
	}

	return kinds, errors, nil
}

// WriteMarkdownReport writes the summary report as Markdown.
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# sfxvault - Diagnostic Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}
	md.WriteString("---\n\n")

	md.WriteString("## Library Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Total Records | %d |\n", report.TotalRecords))
	md.WriteString(fmt.Sprintf("| With Embedding | %d |\n", report.RecordsWithEmbedding))
	md.WriteString(fmt.Sprintf("| Translated | %d |\n", report.RecordsTranslated))
	md.WriteString(fmt.Sprintf("| Untranslated | %d |\n", report.RecordsUntranslated))
	if report.RecordsFailedTransl > 0 {
		md.WriteString(fmt.Sprintf("| Translation Failed | %d |\n", report.RecordsFailedTransl))
	}
	md.WriteString("\n")

	if len(report.Kinds) > 0 {
		md.WriteString("## Detected Issues\n\n")
		md.WriteString("| Kind | Level | Count | Recovery Action |\n")
		md.WriteString("|------|-------|-------|------------------|\n")
		for _, k := range report.Kinds {
			md.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n", k.Kind, k.Level, k.Count, k.Recovery))
		}
		md.WriteString("\n")
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, e := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", e.Count, e.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString(fmt.Sprintf("*Generated by sfxvault. %d records indexed.*\n", report.TotalRecords))

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
