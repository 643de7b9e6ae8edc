package preprocess

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigParsesFilterbank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preprocessor.json")
	body := `{
		"sampling_rate": 48000,
		"n_fft": 4,
		"hop_length": 2,
		"n_mels": 2,
		"max_length_seconds": 10,
		"silence_threshold": 0.0005,
		"mel_filterbank": [[1,0,0], [0,1,0]]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NMels != 2 || len(cfg.MelFilterbank) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxSamples() != 480000 {
		t.Fatalf("expected 480000 samples, got %d", cfg.MaxSamples())
	}
}

func TestLoadConfigRejectsMismatchedFilterbankShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preprocessor.json")
	body := `{
		"sampling_rate": 48000, "n_fft": 4, "hop_length": 2, "n_mels": 2,
		"mel_filterbank": [[1,0,0]]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for filterbank row-count mismatch")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/preprocessor.json"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
