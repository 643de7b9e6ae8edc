package preprocess

import "math/cmplx"

// fft computes the discrete Fourier transform of x in place via iterative
// radix-2 Cooley-Tukey. x's length must be a power of two — the caller
// (stft, below) always zero-pads frames to n_fft, which the config
// guarantees is a power of two (1024 by default). No third-party FFT
// library appears anywhere in the example pack, so this is stdlib
// math/cmplx only.
func fft(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		return x
	}

	out := make([]complex128, n)
	copy(out, x)
	bitReverse(out)

	for size := 2; size <= n; size *= 2 {
		half := size / 2
		angleStep := -2 * 3.141592653589793 / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				w := cmplx.Rect(1, angleStep*float64(k))
				even := out[start+k]
				odd := out[start+k+half] * w
				out[start+k] = even + odd
				out[start+k+half] = even - odd
			}
		}
	}
	return out
}

func bitReverse(x []complex128) {
	n := len(x)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
}
