package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ExtractedAudio is the subset of decoded audio properties an extractor
// hands to the metadata cache for a cache miss (spec C2).
type ExtractedAudio struct {
	Duration     float64
	SampleRateHz uint32
	BitDepth     uint8
	Channels     uint8
	Format       string
	BitrateKbps  uint32
	Title        string
	Artist       string
	Album        string
	Genre        string
	Year         int
	Comment      string
}

// CachedMetadata is an extraction result plus the (mtime, size) witness it
// was captured against.
type CachedMetadata struct {
	FilePath string  `json:"file_path"`
	Mtime    int64   `json:"mtime"`
	FileSize int64   `json:"file_size"`
	CachedAt int64   `json:"cached_at"`
	ExtractedAudio
}

// ExtractFunc performs the actual (expensive) metadata extraction for a
// cache miss.
type ExtractFunc func() (*ExtractedAudio, error)

// MetadataCache avoids redundant disk/decoder work by caching extraction
// results, validated against each file's (mtime, size) witness on every
// read (spec C2).
type MetadataCache struct {
	tiered      *Tiered[string, *CachedMetadata]
	stats       Stats
	persistPath string
	mu          sync.Mutex
	dirty       bool
	sf          singleflight.Group
}

// MetadataCacheConfig configures capacity, expiry, and optional disk
// persistence for a MetadataCache.
type MetadataCacheConfig struct {
	MaxSize     int
	TTL         time.Duration
	PersistPath string
}

// NewMetadataCache builds a metadata cache and, if cfg.PersistPath names an
// existing file, loads it eagerly. Disk I/O failures are non-fatal: the
// cache simply starts cold.
func NewMetadataCache(cfg MetadataCacheConfig) *MetadataCache {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 10000
	}
	l1Size := maxSize / 10
	if l1Size > 1000 {
		l1Size = 1000
	}
	if l1Size <= 0 {
		l1Size = 1
	}

	mc := &MetadataCache{
		tiered: NewTiered[string, *CachedMetadata](TieredConfig{
			L1Size: l1Size,
			L2Size: maxSize,
			L1TTL:  60 * time.Second,
			L2TTL:  cfg.TTL,
		}),
		persistPath: cfg.PersistPath,
	}
	if cfg.PersistPath != "" {
		mc.loadFromDisk()
	}
	return mc
}

func cacheKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// Get returns cached metadata for path, invalidating and reporting a miss
// if the file's mtime or size no longer matches the cached witness.
func (mc *MetadataCache) Get(path string) (*CachedMetadata, bool) {
	key := cacheKey(path)
	cached, ok := mc.tiered.Get(key)
	if !ok {
		mc.stats.recordMiss()
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		mc.tiered.Delete(key)
		mc.stats.recordMiss()
		return nil, false
	}
	if info.ModTime().Unix() != cached.Mtime || info.Size() != cached.FileSize {
		mc.tiered.Delete(key)
		mc.stats.recordMiss()
		return nil, false
	}

	mc.stats.recordHit()
	return cached, true
}

// Set caches metadata for path. New entries always land hot, matching the
// assumption that a just-extracted file is about to be read again soon.
func (mc *MetadataCache) Set(path string, meta *CachedMetadata) {
	mc.tiered.Set(cacheKey(path), meta, true)
	mc.mu.Lock()
	mc.dirty = true
	mc.mu.Unlock()
}

// GetOrExtract returns cached metadata for path, or runs extract and caches
// its result. A nil, nil return means extract legitimately produced nothing
// to cache (e.g. an unreadable file); callers should not treat that as an error.
func (mc *MetadataCache) GetOrExtract(path string, extract ExtractFunc) (*CachedMetadata, error) {
	if cached, ok := mc.Get(path); ok {
		return cached, nil
	}

	// Concurrent misses for the same path share one extraction call.
	res, err, _ := mc.sf.Do(cacheKey(path), func() (any, error) {
		return extract()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata for %s: %w", path, err)
	}
	extracted, _ := res.(*ExtractedAudio)
	if extracted == nil {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cached := &CachedMetadata{
		FilePath:       path,
		Mtime:          info.ModTime().Unix(),
		FileSize:       info.Size(),
		CachedAt:       time.Now().Unix(),
		ExtractedAudio: *extracted,
	}
	mc.Set(path, cached)
	return cached, nil
}

// Invalidate removes any cached entry for path.
func (mc *MetadataCache) Invalidate(path string) bool {
	removed := mc.tiered.Delete(cacheKey(path))
	if removed {
		mc.mu.Lock()
		mc.dirty = true
		mc.mu.Unlock()
		mc.stats.recordEviction()
	}
	return removed
}

// Clear empties the cache and resets statistics.
func (mc *MetadataCache) Clear() {
	mc.tiered.Clear()
	mc.stats.reset()
	mc.mu.Lock()
	mc.dirty = true
	mc.mu.Unlock()
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (mc *MetadataCache) Stats() Snapshot {
	return mc.stats.Snapshot()
}

func (mc *MetadataCache) loadFromDisk() {
	data, err := os.ReadFile(mc.persistPath)
	if err != nil {
		return
	}
	var entries map[string]*CachedMetadata
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	for key, entry := range entries {
		mc.tiered.Set(key, entry, false)
	}
}

// SaveToDisk writes the current cache contents to PersistPath as JSON. It
// is a no-op if PersistPath is empty or nothing has changed since the last
// save.
func (mc *MetadataCache) SaveToDisk() error {
	mc.mu.Lock()
	dirty := mc.dirty
	mc.mu.Unlock()
	if mc.persistPath == "" || !dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(mc.persistPath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(mc.tiered.Items(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata cache: %w", err)
	}
	if err := os.WriteFile(mc.persistPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata cache: %w", err)
	}

	mc.mu.Lock()
	mc.dirty = false
	mc.mu.Unlock()
	return nil
}
