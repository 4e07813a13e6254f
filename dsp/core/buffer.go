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

// Downmix averages interleaved frames of the given channel count into a
// mono slice. A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range out {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum * scale
	}
	return out
}

// Interleave writes left and right into dst as float32 stereo frames and
// returns the number of frames written.
func Interleave(dst []float32, left, right []float64) int {
	n := len(dst) / 2
	if len(left) < n {
		n = len(left)
	}
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		dst[2*i] = float32(left[i])
		dst[2*i+1] = float32(right[i])
	}
	return n
}
