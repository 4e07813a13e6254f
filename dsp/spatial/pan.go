// Package spatial provides stereo placement helpers.
package spatial

import (
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
)

// PanGains returns constant-power left/right gains for pan in [-1, 1]
// (-1 hard left, 0 centre, +1 hard right). Out-of-range and NaN positions
// are clamped first.
func PanGains(pan float64) (left, right float64) {
	angle := (core.ClampBipolar(pan) + 1) * math.Pi / 4
	return math.Cos(angle), math.Sin(angle)
}

// Panner applies a constant-power pan to a mono signal. It caches the gains
// for the last position so per-sample calls with a steady position skip the
// trigonometry.
type Panner struct {
	pos         float64
	left, right float64
}

// NewPanner returns a centred panner.
func NewPanner() *Panner {
	p := &Panner{}
	p.pos = math.NaN()
	p.Set(0)
	return p
}

// Set moves the pan position.
func (p *Panner) Set(pan float64) {
	pan = core.ClampBipolar(pan)
	if pan == p.pos {
		return
	}
	p.pos = pan
	p.left, p.right = PanGains(pan)
}

// Position returns the current (clamped) pan position.
func (p *Panner) Position() float64 { return p.pos }

// Process returns the left and right contributions of x.
func (p *Panner) Process(x float64) (float64, float64) {
	return x * p.left, x * p.right
}
