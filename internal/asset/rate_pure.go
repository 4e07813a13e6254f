//go:build !cgo

package asset

import "github.com/cwbudde/algo-room/dsp/resample"

// convertRate uses the polyphase resampler where libsamplerate is not
// available (wasm, CGO_ENABLED=0).
func convertRate(mono []float64, from, to int) ([]float64, error) {
	return resample.Convert(mono, float64(from), float64(to), resample.WithQuality(resample.QualityBest))
}
