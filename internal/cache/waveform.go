package cache

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Waveform is downsampled peak data for an audio file, suitable for
// rendering a scrubber without decoding the full file again (spec C3).
type Waveform struct {
	FilePath    string
	Mtime       float64
	Samples     []float32
	SampleCount int
	Duration    float64
	Channels    int
}

// waveformHeaderSize is 8 (mtime float64) + 4 (sample_count int32) +
// 8 (duration float64) + 4 (channels int32), little-endian, matching the
// on-disk format this cache has always used.
const waveformHeaderSize = 8 + 4 + 8 + 4

func (w *Waveform) encode() ([]byte, error) {
	var buf bytes.Buffer

	header := make([]byte, waveformHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], math.Float64bits(w.Mtime))
	binary.LittleEndian.PutUint32(header[8:12], uint32(int32(w.SampleCount)))
	binary.LittleEndian.PutUint64(header[12:20], math.Float64bits(w.Duration))
	binary.LittleEndian.PutUint32(header[20:24], uint32(int32(w.Channels)))
	buf.Write(header)

	raw := make([]byte, 4*len(w.Samples))
	for i, f := range w.Samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}

	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var lengthPrefix [4]byte
	binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(compressed.Len()))
	buf.Write(lengthPrefix[:])
	buf.Write(compressed.Bytes())

	return buf.Bytes(), nil
}

func decodeWaveform(data []byte, filePath string) (*Waveform, error) {
	if len(data) < waveformHeaderSize+4 {
		return nil, fmt.Errorf("waveform cache entry too short (%d bytes)", len(data))
	}

	w := &Waveform{FilePath: filePath}
	w.Mtime = math.Float64frombits(binary.LittleEndian.Uint64(data[0:8]))
	w.SampleCount = int(int32(binary.LittleEndian.Uint32(data[8:12])))
	w.Duration = math.Float64frombits(binary.LittleEndian.Uint64(data[12:20]))
	w.Channels = int(int32(binary.LittleEndian.Uint32(data[20:24])))

	compressedLen := binary.LittleEndian.Uint32(data[24:28])
	compressed := data[28:]
	if uint32(len(compressed)) < compressedLen {
		return nil, fmt.Errorf("waveform cache entry truncated")
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed[:compressedLen]))
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed waveform: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress waveform: %w", err)
	}

	w.Samples = make([]float32, len(raw)/4)
	for i := range w.Samples {
		w.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return w, nil
}

// WaveformComputeFunc produces full-resolution samples for a file, along
// with the file's audio duration.
type WaveformComputeFunc func() (samples []float32, duration float64, err error)

// WaveformCache is a two-tier waveform store: a TTL'd in-memory LRU backed
// by a compressed on-disk file per key, keyed by the md5 of the resolved
// file path (spec C3).
type WaveformCache struct {
	cacheDir string
	memory   *LRU[string, *Waveform]
	stats    Stats
}

// WaveformCacheConfig configures the in-memory tier and optional disk
// persistence directory.
type WaveformCacheConfig struct {
	CacheDir        string
	MemoryCacheSize int
	MemoryTTL       time.Duration
}

// NewWaveformCache builds a waveform cache, creating cacheDir if needed.
func NewWaveformCache(cfg WaveformCacheConfig) (*WaveformCache, error) {
	size := cfg.MemoryCacheSize
	if size <= 0 {
		size = 100
	}
	ttl := cfg.MemoryTTL
	if ttl == 0 {
		ttl = 300 * time.Second
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create waveform cache directory: %w", err)
		}
	}
	return &WaveformCache{
		cacheDir: cfg.CacheDir,
		memory:   NewLRU[string, *Waveform](size, ttl, nil),
	}, nil
}

func waveformCacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := md5.Sum([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])
}

func (c *WaveformCache) diskPath(key string) string {
	if c.cacheDir == "" {
		return ""
	}
	return filepath.Join(c.cacheDir, key+".waveform")
}

func validMtime(path string, cachedMtime float64) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return math.Abs(float64(info.ModTime().Unix())-cachedMtime) < 0.001
}

// Get returns cached waveform data for path, checking the in-memory tier
// first and falling back to disk. An mtime mismatch invalidates the stale
// entry rather than returning it.
func (c *WaveformCache) Get(path string) (*Waveform, bool) {
	key := waveformCacheKey(path)

	if cached, ok := c.memory.Get(key); ok {
		if validMtime(path, cached.Mtime) {
			c.stats.recordHit()
			return cached, true
		}
		c.memory.Delete(key)
	}

	diskPath := c.diskPath(key)
	if diskPath != "" {
		if data, err := os.ReadFile(diskPath); err == nil {
			cached, err := decodeWaveform(data, path)
			if err == nil && validMtime(path, cached.Mtime) {
				c.memory.Set(key, cached)
				c.stats.recordHit()
				return cached, true
			}
			os.Remove(diskPath)
		}
	}

	c.stats.recordMiss()
	return nil, false
}

// Set stores waveform data in both the memory tier and, if configured, on
// disk. A disk-write failure is logged by the caller via the returned
// error and does not roll back the memory write.
func (c *WaveformCache) Set(path string, w *Waveform) error {
	key := waveformCacheKey(path)
	c.memory.Set(key, w)

	diskPath := c.diskPath(key)
	if diskPath == "" {
		return nil
	}
	encoded, err := w.encode()
	if err != nil {
		return fmt.Errorf("failed to encode waveform: %w", err)
	}
	if err := os.WriteFile(diskPath, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write waveform cache: %w", err)
	}
	return nil
}

// downsamplePeaks reduces samples to targetCount (min, max) pairs per
// chunk, producing 2*targetCount output samples, matching how this system
// has always rendered scrubber peaks.
func downsamplePeaks(samples []float32, targetCount int) []float32 {
	if len(samples) <= targetCount || targetCount <= 0 {
		return samples
	}

	chunkSize := len(samples) / targetCount
	if chunkSize == 0 {
		chunkSize = 1
	}
	result := make([]float32, targetCount*2)
	for i := 0; i < targetCount; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}
		min, max := samples[start], samples[start]
		for _, v := range samples[start:end] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		result[i*2] = min
		result[i*2+1] = max
	}
	return result
}

// GetOrCompute returns cached waveform peaks or computes and caches them
// via compute, downsampling to targetSamples peak pairs.
func (c *WaveformCache) GetOrCompute(path string, targetSamples int, compute WaveformComputeFunc) (*Waveform, error) {
	if cached, ok := c.Get(path); ok {
		return cached, nil
	}

	raw, duration, err := compute()
	if err != nil {
		return nil, fmt.Errorf("failed to compute waveform for %s: %w", path, err)
	}
	if raw == nil {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	samples := raw
	if len(raw) > targetSamples {
		samples = downsamplePeaks(raw, targetSamples)
	}

	w := &Waveform{
		FilePath:    path,
		Mtime:       float64(info.ModTime().Unix()),
		Samples:     samples,
		SampleCount: len(samples),
		Duration:    duration,
		Channels:    1,
	}
	if err := c.Set(path, w); err != nil {
		return w, err
	}
	return w, nil
}

// Invalidate removes the cached waveform for path from both tiers.
func (c *WaveformCache) Invalidate(path string) bool {
	key := waveformCacheKey(path)
	memRemoved := c.memory.Delete(key)

	fileRemoved := false
	if diskPath := c.diskPath(key); diskPath != "" {
		if err := os.Remove(diskPath); err == nil {
			fileRemoved = true
		}
	}

	if memRemoved || fileRemoved {
		c.stats.recordEviction()
		return true
	}
	return false
}

// Clear empties the memory tier and removes all *.waveform files from the
// cache directory.
func (c *WaveformCache) Clear() {
	c.memory.Clear()
	c.stats.reset()

	if c.cacheDir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(c.cacheDir, "*.waveform"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *WaveformCache) Stats() Snapshot {
	return c.stats.Snapshot()
}
