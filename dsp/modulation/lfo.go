// Package modulation provides low-frequency oscillators for slow parameter
// motion such as autopan.
package modulation

import (
	"fmt"
	"math"
)

// LFO is a sine oscillator with continuous phase. Changing the rate never
// restarts the cycle, so rate sweeps stay click-free.
type LFO struct {
	sampleRate float64
	rateHz     float64
	phase      float64 // cycles in [0, 1)
	inc        float64
}

// NewLFO returns a sine LFO at rateHz.
func NewLFO(sampleRate, rateHz float64) (*LFO, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("modulation: sample rate must be positive and finite: %f", sampleRate)
	}
	l := &LFO{sampleRate: sampleRate}
	l.SetRate(rateHz)
	return l, nil
}

// SetRate changes the rate. Negative or non-finite rates stop the LFO.
func (l *LFO) SetRate(rateHz float64) {
	if !(rateHz > 0) || math.IsInf(rateHz, 0) {
		rateHz = 0
	}
	l.rateHz = rateHz
	l.inc = rateHz / l.sampleRate
}

// Rate returns the current rate in Hz.
func (l *LFO) Rate() float64 { return l.rateHz }

// Phase returns the phase in cycles.
func (l *LFO) Phase() float64 { return l.phase }

// Next returns sin(2π·phase) and advances by one sample.
func (l *LFO) Next() float64 {
	v := math.Sin(2 * math.Pi * l.phase)
	l.phase += l.inc
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}
	return v
}

// Reset returns the phase to zero.
func (l *LFO) Reset() { l.phase = 0 }
