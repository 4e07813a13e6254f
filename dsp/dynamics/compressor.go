// Package dynamics provides the stereo-linked compressor and limiter used
// on the master bus.
//
// The gain computer works in the log2 domain with a quadratic soft knee;
// the detector is a peak follower with separate attack and release.
package dynamics

import (
	"errors"
	"fmt"
	"math"
)

const (
	log2Of10Div20 = 0.166096404744

	minRatio     = 1.0
	maxRatio     = 100.0
	maxKneeDB    = 24.0
	minAttackMs  = 0.01
	maxAttackMs  = 1000.0
	minReleaseMs = 1.0
	maxReleaseMs = 5000.0
)

// ErrInvalidParameter is wrapped by every option validation failure.
var ErrInvalidParameter = errors.New("dynamics: invalid parameter")

// Option configures a Compressor.
type Option func(*config) error

type config struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64
	makeupDB    float64
}

func defaultConfig() config {
	return config{
		thresholdDB: -18,
		ratio:       3,
		kneeDB:      6,
		attackMs:    8,
		releaseMs:   180,
	}
}

// WithThreshold sets the threshold in dBFS.
func WithThreshold(dB float64) Option {
	return func(c *config) error {
		if math.IsNaN(dB) || math.IsInf(dB, 0) || dB > 0 {
			return fmt.Errorf("threshold must be finite and <= 0: %f: %w", dB, ErrInvalidParameter)
		}
		c.thresholdDB = dB
		return nil
	}
}

// WithRatio sets the compression ratio.
func WithRatio(ratio float64) Option {
	return func(c *config) error {
		if !(ratio >= minRatio && ratio <= maxRatio) {
			return fmt.Errorf("ratio must be in [%g, %g]: %f: %w", minRatio, maxRatio, ratio, ErrInvalidParameter)
		}
		c.ratio = ratio
		return nil
	}
}

// WithKnee sets the soft-knee width in dB. Zero gives a hard knee.
func WithKnee(dB float64) Option {
	return func(c *config) error {
		if !(dB >= 0 && dB <= maxKneeDB) {
			return fmt.Errorf("knee must be in [0, %g]: %f: %w", maxKneeDB, dB, ErrInvalidParameter)
		}
		c.kneeDB = dB
		return nil
	}
}

// WithAttack sets the detector attack time in milliseconds.
func WithAttack(ms float64) Option {
	return func(c *config) error {
		if !(ms >= minAttackMs && ms <= maxAttackMs) {
			return fmt.Errorf("attack must be in [%g, %g]: %f: %w", minAttackMs, maxAttackMs, ms, ErrInvalidParameter)
		}
		c.attackMs = ms
		return nil
	}
}

// WithRelease sets the detector release time in milliseconds.
func WithRelease(ms float64) Option {
	return func(c *config) error {
		if !(ms >= minReleaseMs && ms <= maxReleaseMs) {
			return fmt.Errorf("release must be in [%g, %g]: %f: %w", minReleaseMs, maxReleaseMs, ms, ErrInvalidParameter)
		}
		c.releaseMs = ms
		return nil
	}
}

// WithMakeup sets a fixed makeup gain in dB.
func WithMakeup(dB float64) Option {
	return func(c *config) error {
		if math.IsNaN(dB) || math.IsInf(dB, 0) {
			return fmt.Errorf("makeup must be finite: %f: %w", dB, ErrInvalidParameter)
		}
		c.makeupDB = dB
		return nil
	}
}

// Compressor is a feed-forward, stereo-linked peak compressor.
type Compressor struct {
	cfg        config
	sampleRate float64

	thresholdLog2 float64
	halfKneeLog2  float64
	invKneeLog2   float64
	slope         float64
	makeup        float64

	attackCoeff  float64
	releaseCoeff float64
	envelope     float64
	lastGain     float64
}

// NewCompressor returns a compressor at sampleRate. Defaults: -18 dB
// threshold, 3:1, 6 dB knee, 8 ms attack, 180 ms release.
func NewCompressor(sampleRate float64, opts ...Option) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("dynamics: sample rate must be positive and finite: %f", sampleRate)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &Compressor{cfg: cfg, sampleRate: sampleRate, lastGain: 1}
	c.recalculate()
	return c, nil
}

func (c *Compressor) recalculate() {
	c.thresholdLog2 = c.cfg.thresholdDB * log2Of10Div20
	kneeLog2 := c.cfg.kneeDB * log2Of10Div20
	c.halfKneeLog2 = kneeLog2 * 0.5
	c.invKneeLog2 = 0
	if kneeLog2 > 0 {
		c.invKneeLog2 = 1 / kneeLog2
	}
	c.slope = 1 - 1/c.cfg.ratio
	c.makeup = math.Pow(10, c.cfg.makeupDB/20)

	c.attackCoeff = 1 - math.Exp(-math.Ln2/(c.cfg.attackMs*0.001*c.sampleRate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (c.cfg.releaseMs * 0.001 * c.sampleRate))
}

// GainForLevel returns the static gain for a linear detector level.
func (c *Compressor) GainForLevel(level float64) float64 {
	if !(level > 0) {
		return 1
	}

	overshoot := math.Log2(level) - c.thresholdLog2
	if overshoot <= -c.halfKneeLog2 {
		return 1
	}

	effective := overshoot
	if overshoot < c.halfKneeLog2 {
		scratch := overshoot + c.halfKneeLog2
		effective = scratch * scratch * 0.5 * c.invKneeLog2
	}

	return math.Exp2(-effective * c.slope)
}

// ProcessStereo runs one stereo frame through the compressor. Both channels
// share the detector so the stereo image does not shift under gain
// reduction.
func (c *Compressor) ProcessStereo(left, right float64) (float64, float64) {
	level := math.Max(math.Abs(left), math.Abs(right))
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}

	g := c.GainForLevel(c.envelope) * c.makeup
	c.lastGain = g
	return left * g, right * g
}

// ProcessBlock processes left and right in place.
func (c *Compressor) ProcessBlock(left, right []float64) {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		left[i], right[i] = c.ProcessStereo(left[i], right[i])
	}
}

// GainReductionDB returns the gain applied to the last frame in dB (<= 0
// without makeup).
func (c *Compressor) GainReductionDB() float64 {
	return 20 * math.Log10(c.lastGain)
}

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.cfg.thresholdDB }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.cfg.ratio }

// Reset clears the detector.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.lastGain = 1
}
