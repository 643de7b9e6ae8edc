package util

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
)

// GenerateContentHash creates a SHA1 hash of file content. Used to
// populate AudioRecord.ContentHash lazily during metadata extraction
// (spec §3: opaque, populated lazily).
func GenerateContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// GetFileMetadata extracts basic filesystem metadata (size, mtime).
func GetFileMetadata(path string) (size int64, mtime int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return info.Size(), info.ModTime().Unix(), nil
}
