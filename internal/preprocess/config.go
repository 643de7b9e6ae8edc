// Package preprocess implements the deterministic waveform to log-mel
// spectrogram transform (spec §4.7), grounded on
// original_source/application/ai/clap_service.py's CLAPInferenceService
// constants and the pipeline clap_service.py drives around
// clap_preprocess.CLAPPreprocessor.
package preprocess

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the externally-supplied preprocessor parameters (spec §8
// "Preprocessor configuration"), loaded once per worker.
type Config struct {
	SamplingRate     int         `json:"sampling_rate"`
	NFFT             int         `json:"n_fft"`
	HopLength        int         `json:"hop_length"`
	NMels            int         `json:"n_mels"`
	MaxLengthSeconds float64     `json:"max_length_seconds"`
	SilenceThreshold float32     `json:"silence_threshold"`
	MelFilterbank    [][]float64 `json:"mel_filterbank"` // [n_mels][n_fft/2+1]
}

// defaultConfig matches CLAPInferenceService's class constants, used when no
// filterbank is supplied (e.g. in tests exercising shapes rather than
// bit-exact coefficients).
func defaultConfig() *Config {
	return &Config{
		SamplingRate:     48000,
		NFFT:             1024,
		HopLength:        480,
		NMels:            64,
		MaxLengthSeconds: 10,
		SilenceThreshold: 0.0005,
	}
}

// LoadConfig reads a preprocessor config JSON file from disk. Callers that
// need a filterbank-free default (for tests or dry runs) use defaultConfig
// instead.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preprocess: failed to read config %s: %w", path, err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("preprocess: failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SamplingRate <= 0 || c.NFFT <= 0 || c.HopLength <= 0 || c.NMels <= 0 {
		return fmt.Errorf("preprocess: config has non-positive dimension")
	}
	if c.MelFilterbank != nil {
		if len(c.MelFilterbank) != c.NMels {
			return fmt.Errorf("preprocess: mel filterbank has %d rows, want n_mels=%d", len(c.MelFilterbank), c.NMels)
		}
		wantCols := c.NFFT/2 + 1
		for i, row := range c.MelFilterbank {
			if len(row) != wantCols {
				return fmt.Errorf("preprocess: mel filterbank row %d has %d cols, want %d", i, len(row), wantCols)
			}
		}
	}
	return nil
}

// MaxSamples returns the fixed input length in samples the waveform is
// padded/truncated to before STFT.
func (c *Config) MaxSamples() int {
	return int(c.MaxLengthSeconds * float64(c.SamplingRate))
}
