// Package design computes biquad coefficients from musical parameters
// using the RBJ audio-EQ cookbook formulas.
//
// Frequencies are clamped into [10 Hz, 0.49·fs] instead of being rejected:
// the room graph sweeps cutoffs at frame rate and needs a valid filter at
// any sample rate.
package design

import (
	"math"

	"github.com/cwbudde/algo-room/dsp/filter/biquad"
)

const (
	defaultQ = 1 / math.Sqrt2
	minFreq  = 10.0
)

// Lowpass returns a second-order lowpass.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	cw, alpha := math.Cos(w0), math.Sin(w0)/(2*normalizedQ(q))
	b1 := 1 - cw
	return normalizeBiquad(b1/2, b1, b1/2, 1+alpha, -2*cw, 1-alpha)
}

// Highpass returns a second-order highpass.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	cw, alpha := math.Cos(w0), math.Sin(w0)/(2*normalizedQ(q))
	b0 := (1 + cw) / 2
	return normalizeBiquad(b0, -(1 + cw), b0, 1+alpha, -2*cw, 1-alpha)
}

// Peak returns a peaking EQ with gainDB at freq.
func Peak(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	cw, alpha := math.Cos(w0), math.Sin(w0)/(2*normalizedQ(q))
	a := math.Pow(10, gainDB/40)

	return normalizeBiquad(
		1+alpha*a, -2*cw, 1-alpha*a,
		1+alpha/a, -2*cw, 1-alpha/a,
	)
}

// HighShelf returns a high shelf with gainDB above freq.
func HighShelf(freq, gainDB, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Identity()
	}

	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * normalizedQ(q))
	a := math.Pow(10, gainDB/40)
	beta := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cw + beta)
	b1 := -2 * a * ((a - 1) + (a+1)*cw)
	b2 := a * ((a + 1) + (a-1)*cw - beta)
	a0 := (a + 1) - (a-1)*cw + beta
	a1 := 2 * ((a - 1) - (a+1)*cw)
	a2 := (a + 1) - (a-1)*cw - beta

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, false
	}

	if math.IsNaN(freq) {
		return 0, false
	}

	freq = math.Max(minFreq, math.Min(freq, 0.49*sampleRate))
	return 2 * math.Pi * freq / sampleRate, true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return defaultQ
	}

	return q
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Identity()
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
