// Package spectrum provides a real-time magnitude analyzer that reports
// smoothed, dB-scaled bins normalised to [0, 1].
//
// The analyzer follows the usual browser analyser-node conventions: a
// periodic Blackman window, |X[k]|/N magnitudes, first-order smoothing in
// the linear domain, then a dB mapping between a floor and a ceiling.
package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-room/dsp/window"
)

const (
	defaultSize      = 2048
	defaultSmoothing = 0.8
	defaultMinDB     = -100.0
	defaultMaxDB     = -30.0
	minSize          = 32
	maxSize          = 32768
)

// ErrInvalidSize is returned for FFT sizes that are not a power of two in
// [32, 32768].
var ErrInvalidSize = errors.New("spectrum: fft size must be a power of two in [32, 32768]")

// Option configures an Analyzer.
type Option func(*Analyzer) error

// WithSmoothing sets the time smoothing constant in [0, 1).
func WithSmoothing(tau float64) Option {
	return func(a *Analyzer) error {
		if !(tau >= 0 && tau < 1) {
			return fmt.Errorf("spectrum: smoothing must be in [0, 1): %f", tau)
		}
		a.smoothing = tau
		return nil
	}
}

// WithDecibelRange sets the dB values mapped to 0 and 1.
func WithDecibelRange(minDB, maxDB float64) Option {
	return func(a *Analyzer) error {
		if math.IsNaN(minDB) || math.IsNaN(maxDB) || minDB >= maxDB {
			return fmt.Errorf("spectrum: invalid dB range [%f, %f]", minDB, maxDB)
		}
		a.minDB, a.maxDB = minDB, maxDB
		return nil
	}
}

// Analyzer turns blocks of time samples into normalised frequency bins.
// It is not safe for concurrent use.
type Analyzer struct {
	size      int
	smoothing float64
	minDB     float64
	maxDB     float64

	win  []float64
	plan *algofft.Plan[complex128]

	frame    []float64
	in       []complex128
	out      []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
	bins     []float64
}

// NewAnalyzer returns an analyzer for FFT size (0 selects 2048).
func NewAnalyzer(size int, opts ...Option) (*Analyzer, error) {
	if size == 0 {
		size = defaultSize
	}
	if size < minSize || size > maxSize || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	a := &Analyzer{
		size:      size,
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: init fft plan: %w", err)
	}

	half := size / 2
	a.plan = plan
	a.win = window.Generate(window.TypeBlackman, size, window.WithPeriodic())
	a.frame = make([]float64, size)
	a.in = make([]complex128, size)
	a.out = make([]complex128, size)
	a.re = make([]float64, half)
	a.im = make([]float64, half)
	a.mag = make([]float64, half)
	a.smoothed = make([]float64, half)
	a.bins = make([]float64, half)

	return a, nil
}

// Size returns the FFT size.
func (a *Analyzer) Size() int { return a.size }

// BinCount returns the number of frequency bins (Size/2).
func (a *Analyzer) BinCount() int { return a.size / 2 }

// Process analyses the most recent Size() samples of block and returns the
// normalised bins. Shorter blocks are zero-padded at the front. The
// returned slice is owned by the analyzer and overwritten by the next
// call.
func (a *Analyzer) Process(block []float64) []float64 {
	core := block
	if len(core) > a.size {
		core = core[len(core)-a.size:]
	}
	pad := a.size - len(core)
	for i := 0; i < pad; i++ {
		a.frame[i] = 0
	}
	copy(a.frame[pad:], core)
	vecmath.MulBlockInPlace(a.frame, a.win)

	for i, x := range a.frame {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		a.in[i] = complex(x, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return a.bins
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.size)
	scale := 1 / (a.maxDB - a.minDB)
	for k, m := range a.mag {
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*m*norm
		a.smoothed[k] = s

		db := math.Inf(-1)
		if s > 0 {
			db = 20 * math.Log10(s)
		}
		v := (db - a.minDB) * scale
		switch {
		case !(v > 0):
			v = 0
		case v > 1:
			v = 1
		}
		a.bins[k] = v
	}

	return a.bins
}

// Bins returns the bins produced by the last Process call.
func (a *Analyzer) Bins() []float64 { return a.bins }

// Reset clears the smoothing history.
func (a *Analyzer) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
		a.bins[i] = 0
	}
}
