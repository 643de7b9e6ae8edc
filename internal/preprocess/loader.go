package preprocess

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
)

// Load decodes an audio file's first maxSeconds of audio to a mono float32
// waveform at sampleRate, via an `ffmpeg` subprocess emitting raw
// little-endian f32 PCM, averaging channels when the source is
// multi-channel (spec §4.7 step 1). Grounded on the exec.Command/LookPath
// pattern in the teacher's internal/meta/ffprobe.go, generalized from JSON
// metadata extraction to raw sample decoding.
func Load(ctx context.Context, path string, sampleRate int, maxSeconds float64) ([]float32, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("preprocess: ffmpeg not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-t", fmt.Sprintf("%.3f", maxSeconds),
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "f32le",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("preprocess: ffmpeg decode failed for %s: %w: %s", path, err, stderr.String())
	}

	raw := stdout.Bytes()
	if len(raw)%4 != 0 {
		raw = raw[:len(raw)-len(raw)%4]
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}
