package preprocess

import (
	"fmt"
	"math"
)

// logFloor is the clamp applied before taking the natural log of mel
// energies (spec §4.7 step 7), matching the reference feature extractor's
// minimum-energy floor so silent frames never produce -Inf.
const logFloor = 1e-10

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// stft frames samples with the given window (periodic-hop, zero-padded
// final frame dropped — frames only start where a full n_fft window fits)
// and returns, per frame, the real-input FFT's non-negative frequency bins
// (n_fft/2+1 of them), per spec §4.7 step 5.
func stft(samples []float32, nFFT, hopLength int, window []float64) [][]complex128 {
	if len(samples) < nFFT {
		padded := make([]float32, nFFT)
		copy(padded, samples)
		samples = padded
	}

	numFrames := 1 + (len(samples)-nFFT)/hopLength
	bins := nFFT/2 + 1
	frames := make([][]complex128, numFrames)

	buf := make([]complex128, nFFT)
	for f := 0; f < numFrames; f++ {
		start := f * hopLength
		for i := 0; i < nFFT; i++ {
			buf[i] = complex(float64(samples[start+i])*window[i], 0)
		}
		spectrum := fft(buf)
		frames[f] = append([]complex128(nil), spectrum[:bins]...)
	}
	return frames
}

// powerSpectrogram converts STFT frames to power (|X|^2), per frame.
func powerSpectrogram(frames [][]complex128) [][]float64 {
	out := make([][]float64, len(frames))
	for i, frame := range frames {
		row := make([]float64, len(frame))
		for j, c := range frame {
			re, im := real(c), imag(c)
			row[j] = re*re + im*im
		}
		out[i] = row
	}
	return out
}

// projectMel applies the n_mels x (n_fft/2+1) filterbank to a power
// spectrogram, producing n_mels x num_frames mel energies (spec §4.7 step
// 6), then log-compresses with logFloor (step 7).
func projectMel(power [][]float64, filterbank [][]float64) [][]float32 {
	nMels := len(filterbank)
	numFrames := len(power)
	out := make([][]float32, nMels)
	for m := 0; m < nMels; m++ {
		row := make([]float32, numFrames)
		fb := filterbank[m]
		for t := 0; t < numFrames; t++ {
			var energy float64
			spec := power[t]
			for k, coeff := range fb {
				if coeff == 0 {
					continue
				}
				energy += coeff * spec[k]
			}
			if energy < logFloor {
				energy = logFloor
			}
			row[t] = float32(math.Log(energy))
		}
		out[m] = row
	}
	return out
}

// Transform runs the deterministic part of the pipeline — pad/truncate,
// STFT, mel projection, log compression (spec §4.7 steps 4-7) — on a
// waveform that has already been through Load, TrimSilenceStart, and
// QuantizeRoundTrip. It returns an n_mels x time_steps log-mel spectrogram.
func Transform(samples []float32, cfg *Config) ([][]float32, error) {
	if cfg.MelFilterbank == nil {
		return nil, fmt.Errorf("preprocess: config has no mel filterbank")
	}

	padded := PadOrTruncate(samples, cfg.MaxSamples())
	window := hannWindow(cfg.NFFT)
	frames := stft(padded, cfg.NFFT, cfg.HopLength, window)
	power := powerSpectrogram(frames)
	return projectMel(power, cfg.MelFilterbank), nil
}

// Preprocess runs the complete pipeline (spec §4.7 steps 2-7) given a raw
// waveform already loaded at cfg.SamplingRate (step 1, via Load). It is
// pure and holds no state across calls, so it is safe to invoke from many
// worker goroutines concurrently provided each passes its own Config.
func Preprocess(raw []float32, cfg *Config) ([][]float32, error) {
	trimmed := TrimSilenceStart(raw, cfg.SilenceThreshold)
	quantized := QuantizeRoundTrip(trimmed)
	return Transform(quantized, cfg)
}
