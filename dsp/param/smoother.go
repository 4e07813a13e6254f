// Package param provides per-sample parameter smoothing so that control
// values written at frame rate reach the audio path without zipper noise.
package param

import (
	"fmt"
	"math"
)

// Smoother ramps a value toward a target with a one-pole response.
//
// The control thread writes targets with SetTarget; the audio path calls
// Next once per sample. Neither call allocates.
type Smoother struct {
	current float64
	target  float64
	coeff   float64
}

// NewSmoother returns a smoother whose response reaches ~63% of a step in
// timeSeconds. A zero time makes the smoother jump immediately.
func NewSmoother(sampleRate, timeSeconds, initial float64) (*Smoother, error) {
	s := &Smoother{current: initial, target: initial}
	if err := s.SetTime(sampleRate, timeSeconds); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTime updates the ramp time constant.
func (s *Smoother) SetTime(sampleRate, timeSeconds float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("param: sample rate must be positive and finite: %f", sampleRate)
	}
	if timeSeconds < 0 || math.IsNaN(timeSeconds) || math.IsInf(timeSeconds, 0) {
		return fmt.Errorf("param: smoothing time must be >= 0 and finite: %f", timeSeconds)
	}
	if timeSeconds == 0 {
		s.coeff = 1
		return nil
	}
	s.coeff = 1 - math.Exp(-1/(timeSeconds*sampleRate))
	return nil
}

// SetTarget sets the value the smoother ramps toward. Non-finite targets
// are ignored.
func (s *Smoother) SetTarget(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.target = v
}

// Snap jumps both current value and target to v.
func (s *Smoother) Snap(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.current = v
	s.target = v
}

// Next advances one sample and returns the new value.
func (s *Smoother) Next() float64 {
	s.current += (s.target - s.current) * s.coeff
	if math.Abs(s.target-s.current) < 1e-9 {
		s.current = s.target
	}
	return s.current
}

// Value returns the current smoothed value.
func (s *Smoother) Value() float64 { return s.current }

// Target returns the current target.
func (s *Smoother) Target() float64 { return s.target }

// Settled reports whether the smoother has reached its target.
func (s *Smoother) Settled() bool { return s.current == s.target }
