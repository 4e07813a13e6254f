// Package stem implements the per-stem spatial chain.
//
// Signal path:
//
//	source -> trim -> focus peak -> low-pass -+-> dry gain -> pan (+ LFO) ------> L/R
//	                                          +-> side gain ---------------------> L
//	                                          +-> side delay -> side gain -------> R
//	                                          +-> send gain ---------------------> reverb
//
// Compute is a pure function of the control values; a Chain only ramps
// toward whatever Coefficients it was last given.
package stem

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/dsp/delay"
	"github.com/cwbudde/algo-room/dsp/filter/biquad"
	"github.com/cwbudde/algo-room/dsp/filter/design"
	"github.com/cwbudde/algo-room/dsp/graph"
	"github.com/cwbudde/algo-room/dsp/modulation"
	"github.com/cwbudde/algo-room/dsp/param"
	"github.com/cwbudde/algo-room/dsp/spatial"
)

const (
	// MaxSideDelay is the longest Haas offset the side line can hold.
	MaxSideDelay = 0.040

	minDry        = 0.10
	focusQ        = 1.0
	autopanSpan   = 0.35
	defaultTrim   = 0.8
	defaultRamp   = 0.03
	coeffInterval = 32
)

var (
	// ErrEmptyBuffer is returned when a chain is built without audio.
	ErrEmptyBuffer = errors.New("stem: empty buffer")
	// ErrInvalidConfig is wrapped by option validation failures.
	ErrInvalidConfig = errors.New("stem: invalid config")
)

// Kind selects the per-stem voicing.
type Kind int

const (
	Percussive Kind = iota
	Melodic
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Percussive:
		return "percussive"
	case Melodic:
		return "melodic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SendBase scales the reverb send. Percussive material reads more "room"
// per unit send, so it gets the larger base.
func (k Kind) SendBase() float64 {
	if k == Percussive {
		return 1.10
	}
	return 1.05
}

// FocusGainDB is the focus peak boost.
func (k Kind) FocusGainDB() float64 {
	if k == Percussive {
		return 9
	}
	return 15
}

// DefaultBasePan is the resting position of each stem.
func (k Kind) DefaultBasePan() float64 {
	if k == Percussive {
		return -0.35
	}
	return 0.35
}

// Input is the control state one chain depends on.
type Input struct {
	Distance float64
	Width    float64
	Focus    float64
	Motion   float64
	Space    float64
	PointerX float64
	BasePan  float64
	Kind     Kind
}

// Coefficients are the per-frame targets for one chain.
type Coefficients struct {
	Dry         float64
	Send        float64
	LowpassHz   float64
	FocusHz     float64
	FocusGainDB float64
	Pan         float64
	SideGain    float64
	SideDelay   float64 // seconds
	LFORate     float64 // Hz
	LFODepth    float64
}

// Compute maps control values to chain coefficients. Inputs are clamped to
// their domains first, so every output is in range for any input.
func Compute(in Input) Coefficients {
	d := core.Clamp01(in.Distance)
	w := core.Clamp01(in.Width)
	f := core.Clamp01(in.Focus)
	m := core.Clamp01(in.Motion)
	s := core.Clamp01(in.Space)
	x := core.ClampBipolar(in.PointerX)
	base := core.ClampBipolar(in.BasePan)

	return Coefficients{
		Dry:         math.Max(minDry, 1-0.80*d),
		Send:        core.Clamp01((0.15 + 0.95*d) * (0.35 + 0.85*s) * in.Kind.SendBase()),
		LowpassHz:   18000 - 15800*d,
		FocusHz:     150 + 6850*f,
		FocusGainDB: in.Kind.FocusGainDB(),
		Pan:         core.ClampBipolar(base*0.9*math.Min(1, 1.25*w) + x*0.55),
		SideGain:    math.Min(0.95, w) * 0.62,
		SideDelay:   math.Min((1+23*w+4*m)*0.001, MaxSideDelay),
		LFORate:     0.06 + 1.65*m,
		LFODepth:    math.Min(1, 0.95*m),
	}
}

// Sanitize clamps hand-built coefficients into the ranges a chain can run
// with.
func (c Coefficients) Sanitize() Coefficients {
	return Coefficients{
		Dry:         core.Clamp(c.Dry, 0, 1),
		Send:        core.Clamp01(c.Send),
		LowpassHz:   core.Clamp(c.LowpassHz, 20, 20000),
		FocusHz:     core.Clamp(c.FocusHz, 20, 20000),
		FocusGainDB: core.Clamp(c.FocusGainDB, -24, 24),
		Pan:         core.ClampBipolar(c.Pan),
		SideGain:    core.Clamp(c.SideGain, 0, 1),
		SideDelay:   core.Clamp(c.SideDelay, 0, MaxSideDelay),
		LFORate:     core.Clamp(c.LFORate, 0, 20),
		LFODepth:    core.Clamp01(c.LFODepth),
	}
}

// Option configures a Chain.
type Option func(*config) error

type config struct {
	trim float64
	ramp float64
}

// WithTrim sets the fixed input gain.
func WithTrim(gain float64) Option {
	return func(c *config) error {
		if !(gain >= 0) || math.IsInf(gain, 0) {
			return fmt.Errorf("%w: trim must be >= 0: %f", ErrInvalidConfig, gain)
		}
		c.trim = gain
		return nil
	}
}

// WithRamp sets the coefficient smoothing time in seconds.
func WithRamp(seconds float64) Option {
	return func(c *config) error {
		if !(seconds >= 0) || math.IsInf(seconds, 0) {
			return fmt.Errorf("%w: ramp must be >= 0: %f", ErrInvalidConfig, seconds)
		}
		c.ramp = seconds
		return nil
	}
}

// Chain plays one looping buffer through the stem path. The buffer is
// borrowed and never written. A Chain is not safe for concurrent use.
type Chain struct {
	kind       Kind
	basePan    float64
	sampleRate float64
	trim       float64

	buffer []float64
	pos    int

	focus   *biquad.Section
	lowpass *biquad.Section
	side    *delay.Line
	lfo     *modulation.LFO
	panner  *spatial.Panner

	dry       *param.Smoother
	send      *param.Smoother
	pan       *param.Smoother
	sideGain  *param.Smoother
	sideDelay *param.Smoother // samples
	depth     *param.Smoother
	lpHz      *param.Smoother
	focusHz   *param.Smoother
	focusDB   *param.Smoother

	target    Coefficients
	countdown int
}

// New builds a chain for buffer at sampleRate. It starts at the
// coefficients for the default parameter set.
func New(buffer []float64, basePan float64, kind Kind, sampleRate float64, opts ...Option) (*Chain, error) {
	if len(buffer) == 0 {
		return nil, ErrEmptyBuffer
	}
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("stem: %w", err)
	}

	cfg := config{trim: defaultTrim, ramp: defaultRamp}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	side, err := delay.NewSeconds(MaxSideDelay, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("stem: side line: %w", err)
	}

	c := &Chain{
		kind:       kind,
		basePan:    core.ClampBipolar(basePan),
		sampleRate: sampleRate,
		trim:       cfg.trim,
		buffer:     buffer,
		focus:      biquad.NewSection(biquad.Identity()),
		lowpass:    biquad.NewSection(biquad.Identity()),
		side:       side,
		panner:     spatial.NewPanner(),
	}

	initial := Compute(Input{Focus: 0.5, Motion: 0.12, Space: 0.35, BasePan: c.basePan, Kind: kind})
	c.lfo, err = modulation.NewLFO(sampleRate, initial.LFORate)
	if err != nil {
		return nil, fmt.Errorf("stem: %w", err)
	}

	smoothers := []struct {
		dst **param.Smoother
		v   float64
	}{
		{&c.dry, initial.Dry},
		{&c.send, initial.Send},
		{&c.pan, initial.Pan},
		{&c.sideGain, initial.SideGain},
		{&c.sideDelay, initial.SideDelay * sampleRate},
		{&c.depth, initial.LFODepth},
		{&c.lpHz, initial.LowpassHz},
		{&c.focusHz, initial.FocusHz},
		{&c.focusDB, initial.FocusGainDB},
	}
	for _, s := range smoothers {
		sm, err := param.NewSmoother(sampleRate, cfg.ramp, s.v)
		if err != nil {
			return nil, fmt.Errorf("stem: %w", err)
		}
		*s.dst = sm
	}

	c.target = initial
	c.updateFilters()
	return c, nil
}

// Kind returns the stem voicing.
func (c *Chain) Kind() Kind { return c.kind }

// BasePan returns the resting pan position.
func (c *Chain) BasePan() float64 { return c.basePan }

// Position returns the playhead in samples.
func (c *Chain) Position() int { return c.pos }

// Len returns the loop length in samples.
func (c *Chain) Len() int { return len(c.buffer) }

// Target returns the coefficients most recently applied.
func (c *Chain) Target() Coefficients { return c.target }

// Apply sets new coefficient targets without allocating.
func (c *Chain) Apply(coeffs Coefficients) {
	coeffs = coeffs.Sanitize()
	c.target = coeffs
	c.dry.SetTarget(coeffs.Dry)
	c.send.SetTarget(coeffs.Send)
	c.pan.SetTarget(coeffs.Pan)
	c.sideGain.SetTarget(coeffs.SideGain)
	c.sideDelay.SetTarget(coeffs.SideDelay * c.sampleRate)
	c.depth.SetTarget(coeffs.LFODepth)
	c.lpHz.SetTarget(coeffs.LowpassHz)
	c.focusHz.SetTarget(coeffs.FocusHz)
	c.focusDB.SetTarget(coeffs.FocusGainDB)
	c.lfo.SetRate(coeffs.LFORate)
}

func (c *Chain) updateFilters() {
	c.focus.SetCoefficients(design.Peak(c.focusHz.Value(), c.focusDB.Value(), focusQ, c.sampleRate))
	c.lowpass.SetCoefficients(design.Lowpass(c.lpHz.Value(), 0, c.sampleRate))
}

// Render adds the chain's dry and side output into left and right and
// writes its reverb send into send. All three slices are processed up to
// the shortest length.
func (c *Chain) Render(left, right, send []float64) {
	n := min(len(left), len(right), len(send))
	for i := 0; i < n; i++ {
		if c.countdown <= 0 {
			c.updateFilters()
			c.countdown = coeffInterval
		}
		c.countdown--

		c.lpHz.Next()
		c.focusHz.Next()
		c.focusDB.Next()

		x := c.buffer[c.pos] * c.trim
		c.pos++
		if c.pos >= len(c.buffer) {
			c.pos = 0
		}

		x = c.focus.ProcessSample(x)
		x = c.lowpass.ProcessSample(x)

		c.panner.Set(c.pan.Next() + c.depth.Next()*autopanSpan*c.lfo.Next())
		dl, dr := c.panner.Process(x * c.dry.Next())

		sg := c.sideGain.Next()
		c.side.Write(x)
		sideR := c.side.ReadFractional(c.sideDelay.Next())

		left[i] += dl + x*sg
		right[i] += dr + sideR*sg
		send[i] = x * c.send.Next()
	}
}

// Reset rewinds the playhead, clears filter and delay state and snaps the
// smoothers to their targets.
func (c *Chain) Reset() {
	c.pos = 0
	c.focus.Reset()
	c.lowpass.Reset()
	c.side.Reset()
	c.lfo.Reset()
	for _, s := range []*param.Smoother{c.dry, c.send, c.pan, c.sideGain, c.sideDelay, c.depth, c.lpHz, c.focusHz, c.focusDB} {
		s.Snap(s.Target())
	}
	c.countdown = 0
}

// Topology returns the chain wiring.
func (c *Chain) Topology() *graph.Graph {
	g := graph.New("stem-" + c.kind.String())
	mono := func(id string, kind graph.Kind) {
		_ = g.AddNode(id, kind, graph.Mono, graph.Mono)
	}
	pan := func(id string) {
		_ = g.AddNode(id, graph.KindPan, graph.Mono, graph.Stereo)
	}
	link := func(from, to string) {
		_ = g.Connect(from, to)
	}

	mono("source", graph.KindSource)
	mono("trim", graph.KindGain)
	mono("focus", graph.KindFilter)
	mono("lowpass", graph.KindFilter)
	mono("dry", graph.KindGain)
	pan("pan")
	_ = g.AddNode("autopan", graph.KindOscillator, graph.Control, graph.Control)
	mono("side-left", graph.KindGain)
	pan("hard-left")
	mono("side-delay", graph.KindDelay)
	mono("side-right", graph.KindGain)
	pan("hard-right")
	mono("send", graph.KindGain)
	mono("reverb-send", graph.KindOutput)
	_ = g.AddNode("out", graph.KindSum, graph.Stereo, graph.Stereo)

	link("source", "trim")
	link("trim", "focus")
	link("focus", "lowpass")
	link("lowpass", "dry")
	link("dry", "pan")
	link("autopan", "pan")
	link("pan", "out")
	link("lowpass", "side-left")
	link("side-left", "hard-left")
	link("hard-left", "out")
	link("lowpass", "side-delay")
	link("side-delay", "side-right")
	link("side-right", "hard-right")
	link("hard-right", "out")
	link("lowpass", "send")
	link("send", "reverb-send")
	return g
}
