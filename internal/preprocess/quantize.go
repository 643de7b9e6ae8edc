package preprocess

// TrimSilenceStart drops leading samples whose absolute value stays below
// threshold, returning the waveform starting at the first sample that
// exceeds it (spec §4.7 step 2). A waveform that never exceeds the
// threshold is returned unchanged — there is nothing meaningful to trim to.
func TrimSilenceStart(samples []float32, threshold float32) []float32 {
	for i, s := range samples {
		if abs32(s) > threshold {
			return samples[i:]
		}
	}
	return samples
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// QuantizeRoundTrip reproduces the float32 -> int16 -> float32 round-trip
// the reference feature extractor performs before framing (spec §4.7 step
// 3): scale by 32767, clip to the int16 range, truncate towards zero, and
// rescale by the same factor. This is bit-exact with the reference's own
// int16_to_float32(float32_to_int16(x)) composition.
func QuantizeRoundTrip(samples []float32) []float32 {
	const scale = 32767.0
	out := make([]float32, len(samples))
	for i, s := range samples {
		scaled := float64(s) * scale
		if scaled > scale {
			scaled = scale
		}
		if scaled < -scale-1 {
			scaled = -scale - 1
		}
		q := int16(scaled) // truncates toward zero
		out[i] = float32(q) / scale
	}
	return out
}

// PadOrTruncate fits samples to exactly targetLen, zero-padding at the tail
// or truncating from the head (spec §4.7 step 4, deterministic mode).
func PadOrTruncate(samples []float32, targetLen int) []float32 {
	if len(samples) >= targetLen {
		return samples[:targetLen]
	}
	out := make([]float32, targetLen)
	copy(out, samples)
	return out
}
