package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWaveformEncodeDecodeRoundTrip(t *testing.T) {
	w := &Waveform{
		FilePath:    "/lib/a.wav",
		Mtime:       1700000000,
		Samples:     []float32{-0.5, 0.8, -1.0, 1.0},
		SampleCount: 4,
		Duration:    12.5,
		Channels:    1,
	}
	encoded, err := w.encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := decodeWaveform(encoded, w.FilePath)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Mtime != w.Mtime || decoded.Duration != w.Duration || decoded.Channels != w.Channels {
		t.Errorf("header mismatch: got %+v", decoded)
	}
	if len(decoded.Samples) != len(w.Samples) {
		t.Fatalf("expected %d samples, got %d", len(w.Samples), len(decoded.Samples))
	}
	for i := range w.Samples {
		if decoded.Samples[i] != w.Samples[i] {
			t.Errorf("sample %d mismatch: got %v want %v", i, decoded.Samples[i], w.Samples[i])
		}
	}
}

func TestWaveformCacheGetOrComputeAndDiskPersistence(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "x.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("failed to write test audio: %v", err)
	}
	cacheDir := filepath.Join(dir, "waveforms")

	c, err := NewWaveformCache(WaveformCacheConfig{CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}

	calls := 0
	compute := func() ([]float32, float64, error) {
		calls++
		samples := make([]float32, 5000)
		for i := range samples {
			samples[i] = float32(i%100) / 100
		}
		return samples, 30.0, nil
	}

	w, err := c.GetOrCompute(audioPath, 1000, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.SampleCount != 2000 {
		t.Errorf("expected downsampled peak count 2000, got %d", w.SampleCount)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one waveform file on disk, got %v err=%v", entries, err)
	}

	// A fresh cache instance should load the entry from disk.
	c2, err := NewWaveformCache(WaveformCacheConfig{CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("failed to build second cache: %v", err)
	}
	got, ok := c2.Get(audioPath)
	if !ok {
		t.Fatal("expected disk-backed cache hit")
	}
	if got.SampleCount != w.SampleCount {
		t.Errorf("expected reloaded sample count to match, got %d want %d", got.SampleCount, w.SampleCount)
	}
	if calls != 1 {
		t.Errorf("expected compute to run once, ran %d times", calls)
	}
}

func TestWaveformCacheInvalidateAndClear(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "y.wav")
	os.WriteFile(audioPath, []byte("fake"), 0o644)
	cacheDir := filepath.Join(dir, "waveforms")

	c, err := NewWaveformCache(WaveformCacheConfig{CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}
	c.Set(audioPath, &Waveform{FilePath: audioPath, Mtime: 1, Samples: []float32{1}, SampleCount: 1})

	if !c.Invalidate(audioPath) {
		t.Error("expected invalidate to report removal")
	}
	if _, ok := c.Get(audioPath); ok {
		t.Error("expected cache miss after invalidate")
	}

	c.Set(audioPath, &Waveform{FilePath: audioPath, Mtime: 1, Samples: []float32{1}, SampleCount: 1})
	c.Clear()
	entries, _ := os.ReadDir(cacheDir)
	if len(entries) != 0 {
		t.Errorf("expected cache dir empty after clear, got %v", entries)
	}
}
