// Package report provides a JSONL event log and an aggregated diagnostic
// summary for a run (spec §7: "the system produces a diagnostic report on
// request summarizing detected issues with severity and recovery action").
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies which of the spec's §7 error kinds an event reports.
type EventKind string

const (
	KindTransientIO       EventKind = "transient_io"
	KindPermission        EventKind = "permission"
	KindFormatUnsupported EventKind = "format_unsupported"
	KindCacheCorruption   EventKind = "cache_corruption"
	KindParseRecovered    EventKind = "parse_recovered"
	KindHTTPFailure       EventKind = "http_failure"
	KindTimeout           EventKind = "timeout"
	KindInferenceFailure  EventKind = "inference_failure"
	KindBootstrap         EventKind = "bootstrap"
)

// EventLevel represents the severity level.
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison.
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// defaultLevel is the spec §7 severity for each error kind.
var defaultLevel = map[EventKind]EventLevel{
	KindTransientIO:       LevelWarning,
	KindPermission:        LevelWarning,
	KindFormatUnsupported: LevelInfo,
	KindCacheCorruption:   LevelWarning,
	KindParseRecovered:    LevelInfo,
	KindHTTPFailure:       LevelError,
	KindTimeout:           LevelWarning,
	KindInferenceFailure:  LevelError,
	KindBootstrap:         LevelError,
}

// Event represents a single diagnostic event in the pipeline.
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id,omitempty"`
	Level     EventLevel        `json:"level"`
	Kind      EventKind         `json:"kind"`
	Path      string            `json:"path,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Recovery  string            `json:"recovery,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (e.g. LevelInfo skips
// LevelDebug). Each logger is stamped with a fresh run id so events from
// concurrent or successive runs sharing one outputDir can be told apart
// even though the JSONL filename itself is already timestamped.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.New().String()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file.
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if event.Level == "" {
		event.Level = defaultLevel[event.Kind]
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogTransientIO logs a skipped file/stat/partial-decode error (spec §7:
// warn, skip, pipeline proceeds).
func (l *EventLogger) LogTransientIO(path string, err error) error {
	return l.Log(&Event{Kind: KindTransientIO, Path: path, Error: errString(err), Recovery: "skipped"})
}

// LogPermission logs a permission error (spec §7: warn, skip).
func (l *EventLogger) LogPermission(path string, err error) error {
	return l.Log(&Event{Kind: KindPermission, Path: path, Error: errString(err), Recovery: "skipped"})
}

// LogFormatUnsupported logs an unsupported format/codec (spec §7: info, skip).
func (l *EventLogger) LogFormatUnsupported(path, reason string) error {
	return l.Log(&Event{Kind: KindFormatUnsupported, Path: path, Reason: reason, Recovery: "skipped"})
}

// LogCacheCorruption logs a corrupted cache entry (spec §7: warn, delete and
// recompute).
func (l *EventLogger) LogCacheCorruption(path string, err error) error {
	return l.Log(&Event{Kind: KindCacheCorruption, Path: path, Error: errString(err), Recovery: "deleted and recomputed"})
}

// LogParseRecovered logs a C5 query-parse failure recovered via regex or a
// free-word fallback (spec §7: never propagated).
func (l *EventLogger) LogParseRecovered(reason string) error {
	return l.Log(&Event{Kind: KindParseRecovered, Reason: reason, Recovery: "fell back to free-word term"})
}

// LogHTTPFailure logs a C10 translation provider failure that exhausted
// retries (spec §7: error, identity translation for the affected chunk).
func (l *EventLogger) LogHTTPFailure(reason string, err error) error {
	return l.Log(&Event{Kind: KindHTTPFailure, Reason: reason, Error: errString(err), Recovery: "identity translation for chunk"})
}

// LogTimeout logs a per-file indexing timeout (spec §7: counted as a skip,
// chunk continues).
func (l *EventLogger) LogTimeout(path string) error {
	return l.Log(&Event{Kind: KindTimeout, Path: path, Recovery: "skipped, chunk continues"})
}

// LogInferenceFailure logs a per-chunk inference exception (spec §7: error,
// surviving embeddings from that chunk discarded, next chunk runs).
func (l *EventLogger) LogInferenceFailure(reason string, err error) error {
	return l.Log(&Event{Kind: KindInferenceFailure, Reason: reason, Error: errString(err), Recovery: "chunk discarded"})
}

// LogBootstrap logs a critical bootstrap error (spec §7: aborts startup).
func (l *EventLogger) LogBootstrap(reason string, err error) error {
	return l.Log(&Event{Kind: KindBootstrap, Reason: reason, Error: errString(err), Recovery: "startup aborted"})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Close closes the event log file.
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file.
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger.
func NullLogger() *EventLogger {
	return nil
}
