// Package feature reduces one analysis block to the scalar features that
// modulate the installation: band energies and loudness.
package feature

import (
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
)

// Band edges as fractions of the analyzer's bin count.
const (
	BassLo = 0.0
	BassHi = 0.12
	MidLo  = 0.12
	MidHi  = 0.45
	HighLo = 0.45
	HighHi = 1.0
)

// Snapshot holds the features for one frame. All fields are in [0, 1].
type Snapshot struct {
	Bass float64 `json:"bass"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
	RMS  float64 `json:"rms"`
}

// BandEnergy averages bins over [floor(n·lo), max(a+1, floor(n·hi))),
// clamped to the slice. Bins are clamped to [0, 1] on the way in, so the
// result is always in [0, 1]. An empty slice yields 0.
func BandEnergy(bins []float64, lo, hi float64) float64 {
	n := len(bins)
	if n == 0 {
		return 0
	}

	a := int(math.Floor(float64(n) * core.Clamp01(lo)))
	b := max(a+1, int(math.Floor(float64(n)*core.Clamp01(hi))))
	a = min(a, n)
	b = min(b, n)
	if b <= a {
		return 0
	}

	sum := 0.0
	for _, v := range bins[a:b] {
		sum += core.Clamp01(v)
	}
	return sum / float64(b-a)
}

// RMS returns sqrt(mean(x²)) over samples clamped to [-1, 1], capped at 1.
// NaN samples count as silence.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range samples {
		if math.IsNaN(x) {
			continue
		}
		x = core.Clamp(x, -1, 1)
		sum += x * x
	}
	return math.Min(1, math.Sqrt(sum/float64(len(samples))))
}

// Extract computes the full snapshot. It is pure: equal inputs give equal
// outputs and neither slice is modified.
func Extract(bins, samples []float64) Snapshot {
	return Snapshot{
		Bass: BandEnergy(bins, BassLo, BassHi),
		Mid:  BandEnergy(bins, MidLo, MidHi),
		High: BandEnergy(bins, HighLo, HighHi),
		RMS:  RMS(samples),
	}
}
