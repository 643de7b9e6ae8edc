// Package scan discovers audio files under a library root, feeding paths
// into the indexing orchestrator (internal/index) and metadata extractor
// (internal/meta). The system's data model treats files purely by path,
// content hash, and mtime witness (spec §3) rather than a separate
// "discovered" staging table, so this package only walks and filters —
// persistence happens once extraction and indexing actually produce an
// AudioRecord.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/arek-soma/sfxvault/internal/util"
)

// AudioExtensions are the default supported audio file extensions.
var AudioExtensions = []string{
	".mp3",
	".flac",
	".m4a",
	".aac",
	".ogg",
	".opus",
	".wav",
	".aiff",
	".aif",
	".wma",
	".ape",
	".wv",
	".mpc",
}

// Scanner discovers audio files in a directory tree.
type Scanner struct {
	extensions map[string]bool
	showBar    bool
}

// Config holds scanner configuration.
type Config struct {
	AdditionalExts []string
	ShowProgress   bool // render a progress bar while walking, like the CLI scan step
}

// New creates a new Scanner.
func New(cfg Config) *Scanner {
	extMap := make(map[string]bool, len(AudioExtensions)+len(cfg.AdditionalExts))
	for _, ext := range AudioExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		extMap[strings.ToLower(ext)] = true
	}
	return &Scanner{extensions: extMap, showBar: cfg.ShowProgress}
}

// Discover walks root and returns every path with a supported audio
// extension. Errors accessing individual entries are logged and skipped
// rather than aborting the walk, matching the teacher's resilience
// posture in its own directory walk.
func (s *Scanner) Discover(ctx context.Context, root string) ([]string, error) {
	util.InfoLog("Scanning library root: %s", root)

	var paths []string
	var bar *progressbar.ProgressBar
	if s.showBar && util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("scan: error accessing %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !s.isAudioFile(path) {
			return nil
		}

		paths = append(paths, path)
		if bar != nil {
			bar.Add(1)
		}
		return nil
	})

	if bar != nil {
		bar.Finish()
	}

	if walkErr != nil && walkErr != context.Canceled {
		return paths, fmt.Errorf("scan: walk failed: %w", walkErr)
	}

	util.SuccessLog("Scan complete: %d audio files discovered", len(paths))
	return paths, walkErr
}

func (s *Scanner) isAudioFile(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions returns the list of extensions this Scanner matches.
func (s *Scanner) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.extensions))
	for ext := range s.extensions {
		exts = append(exts, ext)
	}
	return exts
}
