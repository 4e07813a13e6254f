//go:build cgo

package asset

import "github.com/dh1tw/gosamplerate"

// convertRate uses libsamplerate's best sinc converter.
func convertRate(mono []float64, from, to int) ([]float64, error) {
	in := make([]float32, len(mono))
	for i, v := range mono {
		in[i] = float32(v)
	}

	out, err := gosamplerate.Simple(in, float64(to)/float64(from), 1, gosamplerate.SRC_SINC_BEST_QUALITY)
	if err != nil {
		return nil, err
	}

	res := make([]float64, len(out))
	for i, v := range out {
		res[i] = float64(v)
	}
	return res, nil
}
