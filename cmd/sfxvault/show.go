package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/model"
	"github.com/arek-soma/sfxvault/internal/store"
	"github.com/arek-soma/sfxvault/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show a single registry record's full metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	dbPath := viper.GetString("db")
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	r, err := db.GetByPath(args[0])
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", args[0], err)
	}
	if r == nil {
		return fmt.Errorf("no record found for %s", args[0])
	}

	embedding, err := db.GetEmbedding(r.ID)
	if err != nil {
		return fmt.Errorf("failed to load embedding: %w", err)
	}

	fmt.Printf("id:            %d\n", r.ID)
	fmt.Printf("path:          %s\n", r.Path)
	fmt.Printf("filename:      %s\n", r.Filename)
	fmt.Printf("format:        %s\n", r.Format)
	fmt.Printf("file_size:     %s (%d bytes)\n", humanize.Bytes(uint64(r.FileSize)), r.FileSize)
	fmt.Printf("duration:      %.2fs\n", r.DurationS)
	fmt.Printf("sample_rate:   %d Hz\n", r.SampleRateHz)
	fmt.Printf("bit_depth:     %d\n", r.BitDepth)
	fmt.Printf("channels:      %d\n", r.Channels)
	if r.BitrateKbps > 0 {
		fmt.Printf("bitrate:       %d kbps\n", r.BitrateKbps)
	}
	if r.Title != "" {
		fmt.Printf("title:         %s\n", r.Title)
	}
	if r.Artist != "" {
		fmt.Printf("artist:        %s\n", r.Artist)
	}
	if r.Album != "" {
		fmt.Printf("album:         %s\n", r.Album)
	}
	if r.Genre != "" {
		fmt.Printf("genre:         %s\n", r.Genre)
	}
	if len(r.Tags) > 0 {
		fmt.Printf("tags:          %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Printf("translation:   %s\n", translationStatusLabel(r.TranslationStatus))
	if r.TranslatedName != "" {
		fmt.Printf("translated_as: %s\n", r.TranslatedName)
	}
	if len(embedding) > 0 {
		fmt.Printf("embedding:     %d dims\n", len(embedding))
	} else {
		fmt.Printf("embedding:     none\n")
	}
	if r.ContentHash != "" {
		fmt.Printf("content_hash:  %s\n", r.ContentHash)
	}

	return nil
}

func translationStatusLabel(s model.TranslationStatus) string {
	switch s {
	case model.TranslationTranslated:
		return "translated"
	case model.TranslationFailed:
		return "failed"
	default:
		return "untranslated"
	}
}
