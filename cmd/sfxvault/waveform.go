package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arek-soma/sfxvault/internal/cache"
	"github.com/arek-soma/sfxvault/internal/preprocess"
	"github.com/arek-soma/sfxvault/internal/util"
)

var waveformCmd = &cobra.Command{
	Use:   "waveform [path]",
	Short: "Print a downsampled peak profile for a file, via the two-tier waveform cache (spec §4.3, C3)",
	Args:  cobra.ExactArgs(1),
	RunE:  runWaveform,
}

func init() {
	rootCmd.AddCommand(waveformCmd)
	waveformCmd.Flags().String("cache-dir", ".sfxvault/waveforms", "waveform cache directory")
	waveformCmd.Flags().Int("target-samples", 200, "peak-bucket count (output length is 2x this)")
	waveformCmd.Flags().Int("sample-rate", 48000, "decode sample rate for an uncached file")
	waveformCmd.Flags().Float64("max-seconds", 600, "maximum seconds to decode for an uncached file")
}

func runWaveform(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	path := args[0]
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	targetSamples, _ := cmd.Flags().GetInt("target-samples")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	maxSeconds, _ := cmd.Flags().GetFloat64("max-seconds")

	wc, err := cache.NewWaveformCache(cache.WaveformCacheConfig{CacheDir: cacheDir})
	if err != nil {
		return fmt.Errorf("failed to open waveform cache: %w", err)
	}

	w, err := wc.GetOrCompute(path, targetSamples, func() ([]float32, float64, error) {
		samples, err := preprocess.Load(context.Background(), path, sampleRate, maxSeconds)
		if err != nil {
			return nil, 0, err
		}
		return samples, float64(len(samples)) / float64(sampleRate), nil
	})
	if err != nil {
		return fmt.Errorf("failed to compute waveform: %w", err)
	}

	util.InfoLog("duration=%.2fs channels=%d peaks=%d", w.Duration, w.Channels, len(w.Samples)/2)
	for i := 0; i < len(w.Samples); i += 2 {
		fmt.Printf("%6.3f %6.3f\n", w.Samples[i], w.Samples[i+1])
	}
	return nil
}
