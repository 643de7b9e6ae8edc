// Package meta extracts embedded-tag and audio-property metadata from
// files on disk and stores it as model.AudioRecord rows (feeding the
// indexing pipeline and, ultimately, C6's search engine).
package meta

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhowden/tag"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

// Extractor extracts metadata for a set of discovered paths and upserts
// the resulting records into the registry.
type Extractor struct {
	store       *store.Store
	concurrency int
}

// Config holds extractor configuration.
type Config struct {
	Store       *store.Store
	Concurrency int
}

// New creates a new metadata extractor.
func New(cfg *Config) *Extractor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Extractor{store: cfg.Store, concurrency: cfg.Concurrency}
}

// Result reports the outcome of one Extract call.
type Result struct {
	Processed int
	Success   int
	Errors    []error
}

// ExtractFromPath extracts metadata from a single file path without
// touching the registry — used for ad-hoc re-scans of one file.
func ExtractFromPath(path string) (*model.AudioRecord, error) {
	e := &Extractor{}
	return e.extractOne(path)
}

// Extract extracts metadata for every path, upserting each into the
// registry as it completes. The worker-pool + channel + ticker-progress
// shape mirrors the teacher's own extraction pipeline, generalized from
// writing store.Metadata rows to upserting model.AudioRecord rows; the
// single-writer SQLite connection means a dedicated writer goroutine
// serializes registry calls rather than the teacher's true batch-INSERT
// (the registry only exposes a one-row-at-a-time UpsertRecord).
func (e *Extractor) Extract(ctx context.Context, paths []string) (*Result, error) {
	util.InfoLog("Starting metadata extraction")

	if len(paths) == 0 {
		util.InfoLog("No files to process")
		return &Result{}, nil
	}
	total := len(paths)
	util.InfoLog("Found %d files to process", total)

	result := &Result{Errors: make([]error, 0)}

	var processed, success, failed atomic.Int64

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					pct := float64(p) / float64(total) * 100
					util.InfoLog("Extracting metadata: %d/%d (%.1f%%) - success: %d, errors: %d",
						p, total, pct, success.Load(), failed.Load())
				}
			}
		}
	}()

	pathChan := make(chan string, e.concurrency*2)
	recordChan := make(chan *model.AudioRecord, 1000)

	var wg sync.WaitGroup
	var errorsMu sync.Mutex

	var writerWg sync.WaitGroup
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		pending := make([]*model.AudioRecord, 0, 256)

		flush := func() {
			for _, r := range pending {
				if err := e.store.UpsertRecord(r); err != nil {
					util.ErrorLog("Failed to upsert record for %s: %v", r.Path, err)
				}
			}
			pending = pending[:0]
		}

		for {
			select {
			case r, ok := <-recordChan:
				if !ok {
					flush()
					return
				}
				pending = append(pending, r)
				if len(pending) >= 256 {
					flush()
				}
			case <-ticker.C:
				flush()
			case <-ctx.Done():
				flush()
				return
			}
		}
	}()

	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				processed.Add(1)
				record, err := e.extractOne(path)
				if err != nil {
					util.ErrorLog("Failed to extract metadata for %s: %v", path, err)
					failed.Add(1)
					errorsMu.Lock()
					result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
					errorsMu.Unlock()
					continue
				}

				success.Add(1)
				recordChan <- record
			}
		}()
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(pathChan)
			wg.Wait()
			close(recordChan)
			writerWg.Wait()
			cancelProgress()
			result.Processed = int(processed.Load())
			result.Success = int(success.Load())
			return result, ctx.Err()
		case pathChan <- path:
		}
	}

	close(pathChan)
	wg.Wait()
	close(recordChan)
	writerWg.Wait()
	cancelProgress()

	result.Processed = int(processed.Load())
	result.Success = int(success.Load())

	util.SuccessLog("Metadata extraction complete: %d processed, %d success, %d errors",
		result.Processed, result.Success, len(result.Errors))

	return result, nil
}

// extractOne builds a model.AudioRecord for path by combining the
// dhowden/tag embedded-tag reader with ffprobe's audio-property output
// (spec §3: ffprobe supplies duration/sample rate/channels/bit depth/
// bitrate; tag supplies title/artist/album/genre/year/track/comment).
func (e *Extractor) extractOne(path string) (*model.AudioRecord, error) {
	util.DebugLog("Extracting metadata: %s", path)

	tagRecord, tagErr := e.extractWithTag(path)
	probeRecord, probeErr := e.extractWithFFprobe(path)

	if tagErr != nil && probeErr != nil {
		return nil, fmt.Errorf("all extraction methods failed: tag: %v, ffprobe: %v", tagErr, probeErr)
	}

	var record *model.AudioRecord
	if probeRecord != nil {
		record = probeRecord
		if tagRecord != nil {
			overlayTags(record, tagRecord)
		}
	} else {
		record = tagRecord
	}

	size, mtime, err := util.GetFileMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	record.Path = path
	record.Filename = filenameOf(path)
	record.FileSize = size
	record.MtimeUnix = mtime

	// ContentHash is opaque and populated lazily (spec §3): a failure to
	// hash here does not block the record from being indexed.
	if hash, err := util.GenerateContentHash(path); err == nil {
		record.ContentHash = hash
	} else {
		util.DebugLog("content hash skipped for %s: %v", path, err)
	}

	return record, nil
}

func overlayTags(dst, src *model.AudioRecord) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Artist != "" {
		dst.Artist = src.Artist
	}
	if src.Album != "" {
		dst.Album = src.Album
	}
	if src.Genre != "" {
		dst.Genre = src.Genre
	}
	if src.Year != 0 {
		dst.Year = src.Year
	}
	if src.TrackNumber != 0 {
		dst.TrackNumber = src.TrackNumber
	}
	if src.Comment != "" {
		dst.Comment = src.Comment
	}
}

// extractWithTag uses the dhowden/tag library to read embedded tags.
// It does not provide the container format or audio properties (bitrate,
// sample rate, etc.) — ffprobe fills those in. m.Format() reports the tag
// container (ID3v2, VORBIS, MP4, ...), not the audio container, so it is
// deliberately not used to populate AudioRecord.Format.
func (e *Extractor) extractWithTag(path string) (*model.AudioRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	r := &model.AudioRecord{
		Artist: m.Artist(),
		Album:  m.Album(),
		Title:  m.Title(),
		Genre:  m.Genre(),
	}
	if m.Year() > 0 {
		r.Year = m.Year()
	}
	track, _ := m.Track()
	r.TrackNumber = track
	r.Comment = m.Comment()

	if albumArtist := m.AlbumArtist(); albumArtist != "" && r.Artist == "" {
		r.Artist = albumArtist
	}

	return r, nil
}

// extractWithFFprobe uses ffprobe to extract container/stream properties
// and container-level tags.
func (e *Extractor) extractWithFFprobe(path string) (*model.AudioRecord, error) {
	info, err := RunFFprobe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	r := &model.AudioRecord{}

	if info.Format != nil {
		r.Format = info.Format.FormatName
		if info.Format.Duration != "" {
			var durationSec float64
			fmt.Sscanf(info.Format.Duration, "%f", &durationSec)
			r.DurationS = durationSec
		}
		if info.Format.BitRate != "" {
			var bitrate int
			fmt.Sscanf(info.Format.BitRate, "%d", &bitrate)
			r.BitrateKbps = uint32(bitrate / 1000)
		}
		if tags := info.Format.Tags; tags != nil {
			r.Artist = getTag(tags, "artist", "ARTIST")
			r.Album = getTag(tags, "album", "ALBUM")
			r.Title = getTag(tags, "title", "TITLE")
			r.Genre = getTag(tags, "genre", "GENRE")
			r.Comment = getTag(tags, "comment", "COMMENT")
			if dateStr := getTag(tags, "date", "DATE", "year", "YEAR"); dateStr != "" {
				fmt.Sscanf(dateStr, "%d", &r.Year)
			}
			if trackStr := getTag(tags, "track", "TRACK"); trackStr != "" {
				fmt.Sscanf(trackStr, "%d", &r.TrackNumber)
			}
		}
	}

	if len(info.Streams) > 0 {
		stream := info.Streams[0]
		if r.Format == "" {
			r.Format = stream.CodecName
		}
		r.SampleRateHz = uint32(stream.SampleRate)
		r.Channels = uint8(stream.Channels)

		if stream.BitsPerSample.Value > 0 {
			r.BitDepth = uint8(stream.BitsPerSample.Value)
		} else if stream.BitsPerRawSample.Value > 0 {
			r.BitDepth = uint8(stream.BitsPerRawSample.Value)
		}
	}

	return r, nil
}

func getTag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if val, ok := tags[key]; ok && val != "" {
			return val
		}
	}
	return ""
}

func filenameOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

