package store

import (
	"path/filepath"
	"testing"

	"github.com/arek-soma/sfxvault/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"records", "record_tags", "embeddings", "projects", "project_members", "schema_version"}
	for _, table := range tables {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count); err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestUpsertAndGetRecord(t *testing.T) {
	s := openTestStore(t)

	r := &model.AudioRecord{
		Path:         "/library/explosions/boom_01.wav",
		Filename:     "boom_01.wav",
		Format:       "wav",
		FileSize:     123456,
		DurationS:    6.0,
		SampleRateHz: 48000,
		BitDepth:     24,
		Channels:     2,
		Tags:         []string{"explosion", "impact"},
		MtimeUnix:    1700000000,
	}
	if err := s.UpsertRecord(r); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("expected non-zero id after insert")
	}

	got, err := s.GetByPath(r.Path)
	if err != nil {
		t.Fatalf("get by path failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Filename != r.Filename || got.DurationS != r.DurationS {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
	if len(got.Tags) != 2 || !got.HasTag("explosion") {
		t.Errorf("expected tags to round-trip, got %v", got.Tags)
	}

	// Re-upsert at the same path must update in place, not duplicate.
	r.DurationS = 7.5
	if err := s.UpsertRecord(r); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	_, total, err := s.List(ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 record after re-upsert, got %d", total)
	}
}

func TestListPagination(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		r := &model.AudioRecord{
			Path:      filepath.Join("/lib", "file", string(rune('a'+i))+".wav"),
			Filename:  string(rune('a'+i)) + ".wav",
			Format:    "wav",
			FileSize:  1000,
			MtimeUnix: 1,
		}
		if err := s.UpsertRecord(r); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	page1, total, err := s.List(ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(page1) != 2 {
		t.Errorf("expected page of 2, got %d", len(page1))
	}

	page2, _, err := s.List(ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page1[0].ID == page2[0].ID {
		t.Errorf("expected distinct pages")
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := openTestStore(t)

	r := &model.AudioRecord{Path: "/lib/x.wav", Filename: "x.wav", FileSize: 1, MtimeUnix: 1}
	if err := s.UpsertRecord(r); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	v := []float32{0.6, 0.8}
	if err := s.PutEmbedding(r.ID, v); err != nil {
		t.Fatalf("put embedding failed: %v", err)
	}

	got, err := s.GetEmbedding(r.ID)
	if err != nil {
		t.Fatalf("get embedding failed: %v", err)
	}
	if len(got) != 2 || got[0] != v[0] || got[1] != v[1] {
		t.Errorf("embedding mismatch: got %v want %v", got, v)
	}
}

func TestPutEmbeddingRejectsNonUnitVector(t *testing.T) {
	s := openTestStore(t)
	r := &model.AudioRecord{Path: "/lib/y.wav", Filename: "y.wav", FileSize: 1, MtimeUnix: 1}
	if err := s.UpsertRecord(r); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.PutEmbedding(r.ID, []float32{1, 1}); err == nil {
		t.Error("expected error for non-unit-norm embedding")
	}
}

func TestInvalidatorBroadcast(t *testing.T) {
	s := openTestStore(t)
	var tags []string
	s.SetInvalidator(invalidatorFunc(func(tag string) { tags = append(tags, tag) }))

	r := &model.AudioRecord{Path: "/lib/z.wav", Filename: "z.wav", FileSize: 1, MtimeUnix: 1}
	if err := s.UpsertRecord(r); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if len(tags) == 0 || tags[0] != "records" {
		t.Errorf("expected a records invalidation broadcast, got %v", tags)
	}
}

type invalidatorFunc func(tag string)

func (f invalidatorFunc) InvalidateByTag(tag string) { f(tag) }
