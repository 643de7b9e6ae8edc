// Package model holds the data types shared across the indexing, cache,
// search, and retrieval subsystems.
package model

import "time"

// TranslationStatus tracks the AI-assisted filename translation lifecycle
// of a record.
type TranslationStatus int

const (
	TranslationUntranslated TranslationStatus = 0
	TranslationTranslated   TranslationStatus = 1
	TranslationFailed       TranslationStatus = 2
)

// AudioRecord is the identity of a single indexed file. It is the unit the
// registry (internal/store) owns; caches only ever borrow it by id or path.
type AudioRecord struct {
	ID          int64
	Path        string
	ContentHash string // opaque, populated lazily; empty means unset
	Filename    string
	Format      string
	FileSize    int64

	DurationS    float64
	SampleRateHz uint32
	BitDepth     uint8
	Channels     uint8
	BitrateKbps  uint32 // 0 means unset

	Title       string
	Artist      string
	Album       string
	Genre       string
	Year        int
	TrackNumber int
	Comment     string
	Description string

	Tags []string

	TranslationStatus TranslationStatus
	TranslatedName    string

	// Embedding is L2-normalized to unit length when present; nil means no
	// embedding has been computed yet. Persisted separately from the
	// record itself (see internal/store's embeddings table).
	Embedding []float32

	MtimeUnix int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTag reports whether the record carries the given tag (case-sensitive,
// matching the exact-equality semantics of the `tags`/`tag` query field).
func (r *AudioRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
