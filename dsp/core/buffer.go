package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Deinterleave splits frame-interleaved samples into per-channel slices.
// It writes min(len(dst[c])) frames and returns that count.
func Deinterleave(dst [][]float64, src []float32) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}
	frames := len(src) / channels
	for _, ch := range dst {
		if len(ch) < frames {
			frames = len(ch)
		}
	}
	for i := 0; i < frames; i++ {
		for c := range dst {
			dst[c][i] = float64(src[i*channels+c])
		}
	}
	return frames
}

// Interleave packs per-channel slices into frame-interleaved samples.
// It writes min(len(src[c])) frames and returns that count.
func Interleave(dst []float32, src [][]float64) int {
	channels := len(src)
	if channels == 0 {
		return 0
	}
	frames := len(dst) / channels
	for _, ch := range src {
		if len(ch) < frames {
			frames = len(ch)
		}
	}
	for i := 0; i < frames; i++ {
		for c, ch := range src {
			dst[i*channels+c] = float32(ch[i])
		}
	}
	return frames
}
