// Package window generates the analysis windows used ahead of the FFT.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeBlackman
)

var (
	hannCoeffs     = []float64{0.5, 0.5}
	blackmanCoeffs = []float64{0.42, 0.5, 0.08}
)

// String returns the lower-case window name.
func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeBlackman:
		return "blackman"
	default:
		return fmt.Sprintf("window(%d)", int(t))
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	denom := float64(length - 1)
	if cfg.periodic || length == 1 {
		denom = float64(length)
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = eval(t, float64(i)/denom)
	}

	return out
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// CoherentGain returns the mean of the coefficients.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs))
}

func eval(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return cosineSum(x, hannCoeffs)
	case TypeBlackman:
		return cosineSum(x, blackmanCoeffs)
	default:
		return 1
	}
}

// cosineSum evaluates a0 - a1 cos(2πx) + a2 cos(4πx) - ...
func cosineSum(x float64, coeffs []float64) float64 {
	out := 0.0
	sign := 1.0
	for k, a := range coeffs {
		out += sign * a * math.Cos(2*math.Pi*float64(k)*x)
		sign = -sign
	}
	return out
}
