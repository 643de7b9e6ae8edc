package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestRecords(t *testing.T, db *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		r := &model.AudioRecord{
			Path:     filepath.Join("/library", time.Now().Format("20060102")+string(rune('a'+i))+".wav"),
			Filename: string(rune('a'+i)) + ".wav",
			Format:   "wav",
		}
		if i%2 == 0 {
			r.TranslationStatus = model.TranslationTranslated
		}
		if err := db.UpsertRecord(r); err != nil {
			t.Fatalf("UpsertRecord failed: %v", err)
		}
		if i == 0 {
			if err := db.PutEmbedding(r.ID, []float32{1, 0, 0, 0}); err != nil {
				t.Fatalf("PutEmbedding failed: %v", err)
			}
		}
	}
}

func writeTestEventLog(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test event log: %v", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("failed to write test event: %v", err)
		}
	}
	return path
}

func TestGenerateSummaryReport(t *testing.T) {
	db := openTestStore(t)
	insertTestRecords(t, db, 5)

	eventLog := writeTestEventLog(t, []Event{
		{Level: LevelWarning, Kind: KindTransientIO, Path: "/a.wav", Error: "short read", Recovery: "skipped"},
		{Level: LevelWarning, Kind: KindTransientIO, Path: "/b.wav", Error: "short read", Recovery: "skipped"},
		{Level: LevelError, Kind: KindHTTPFailure, Reason: "chunk 2", Error: "429", Recovery: "identity translation for chunk"},
	})

	report, err := GenerateSummaryReport(db, eventLog)
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.TotalRecords != 5 {
		t.Errorf("Expected 5 total records, got %d", report.TotalRecords)
	}
	if report.RecordsWithEmbedding != 1 {
		t.Errorf("Expected 1 record with embedding, got %d", report.RecordsWithEmbedding)
	}
	if report.RecordsTranslated != 3 {
		t.Errorf("Expected 3 translated records, got %d", report.RecordsTranslated)
	}
	if report.RecordsUntranslated != 2 {
		t.Errorf("Expected 2 untranslated records, got %d", report.RecordsUntranslated)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("Expected GeneratedAt to be set")
	}
	if len(report.Kinds) != 2 {
		t.Fatalf("Expected 2 distinct event kinds, got %d", len(report.Kinds))
	}
	if report.Kinds[0].Kind != KindTransientIO || report.Kinds[0].Count != 2 {
		t.Errorf("Expected transient_io kind with count 2 first, got %+v", report.Kinds[0])
	}
	if len(report.TopErrors) != 2 {
		t.Fatalf("Expected 2 distinct error messages, got %d", len(report.TopErrors))
	}
	if report.TopErrors[0].Error != "short read" || report.TopErrors[0].Count != 2 {
		t.Errorf("Expected 'short read' x2 to be the top error, got %+v", report.TopErrors[0])
	}
}

func TestGenerateSummaryReportNoEventLog(t *testing.T) {
	db := openTestStore(t)
	insertTestRecords(t, db, 2)

	report, err := GenerateSummaryReport(db, "")
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}
	if len(report.Kinds) != 0 {
		t.Errorf("Expected no kinds with no event log, got %d", len(report.Kinds))
	}
	if report.TotalRecords != 2 {
		t.Errorf("Expected 2 total records, got %d", report.TotalRecords)
	}
}

func TestGenerateSummaryReportMissingEventLogFile(t *testing.T) {
	db := openTestStore(t)

	report, err := GenerateSummaryReport(db, filepath.Join(t.TempDir(), "does-not-exist.jsonl"))
	if err != nil {
		t.Fatalf("GenerateSummaryReport should tolerate a missing event log, got: %v", err)
	}
	if len(report.Kinds) != 0 {
		t.Errorf("Expected no kinds for missing event log, got %d", len(report.Kinds))
	}
}

func TestGenerateSummaryReportEmptyDatabase(t *testing.T) {
	db := openTestStore(t)

	report, err := GenerateSummaryReport(db, "")
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}
	if report.TotalRecords != 0 {
		t.Errorf("Expected 0 total records for empty DB, got %d", report.TotalRecords)
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "reports", "summary.md")

	report := &SummaryReport{
		GeneratedAt:          time.Now(),
		TotalRecords:         100,
		RecordsWithEmbedding: 80,
		RecordsTranslated:    40,
		RecordsUntranslated:  60,
		DatabasePath:         "/test/database.db",
		EventLogPath:         "/test/events.jsonl",
		Kinds: []EventKindSummary{
			{Kind: KindTransientIO, Level: LevelWarning, Count: 3, Recovery: "skipped"},
			{Kind: KindHTTPFailure, Level: LevelError, Count: 1, Recovery: "identity translation for chunk"},
		},
		TopErrors: []ErrorSummary{
			{Error: "failed to read tags", Count: 3},
			{Error: "file not found", Count: 2},
		},
	}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatalf("Report file was not created at %s", outputPath)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}
	contentStr := string(content)

	if !strings.Contains(contentStr, "# sfxvault - Diagnostic Report") {
		t.Error("Report missing main header")
	}
	if !strings.Contains(contentStr, "## Library Overview") {
		t.Error("Report missing Library Overview section")
	}
	if !strings.Contains(contentStr, "## Detected Issues") {
		t.Error("Report missing Detected Issues section")
	}
	if !strings.Contains(contentStr, "## Top Errors") {
		t.Error("Report missing Top Errors section")
	}
	if !strings.Contains(contentStr, "100") {
		t.Error("Report missing total records count")
	}
	if !strings.Contains(contentStr, string(KindTransientIO)) {
		t.Error("Report missing transient_io kind")
	}
	if !strings.Contains(contentStr, "failed to read tags") {
		t.Error("Report missing error message")
	}
	if !strings.Contains(contentStr, "/test/database.db") {
		t.Error("Report missing database path")
	}
}

func TestWriteMarkdownReportMinimal(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "summary.md")

	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		TotalRecords: 10,
	}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, _ := os.ReadFile(outputPath)
	contentStr := string(content)

	lines := strings.Split(contentStr, "\n")
	headerCount := 0
	tableCount := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			headerCount++
		}
		if strings.Contains(line, "|") {
			tableCount++
		}
	}
	if headerCount < 2 {
		t.Errorf("Expected at least 2 headers, got %d", headerCount)
	}
	if tableCount < 2 {
		t.Errorf("Expected at least 2 table rows, got %d", tableCount)
	}
	if !strings.Contains(contentStr, "Generated by sfxvault") {
		t.Error("Report missing footer")
	}
	// Sections gated on empty data must not render.
	if strings.Contains(contentStr, "## Detected Issues") {
		t.Error("Did not expect a Detected Issues section with no events")
	}
}
