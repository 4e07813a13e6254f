// Package reverb implements the room's shared reverb bus: a small
// feedback delay network whose tone, decay and pre-delay all follow a
// single "space" control.
//
// Signal path:
//
//	in -> pre-delay -> high-pass -> low-pass -> line[i] -> wet sum -> shelf -> wet -> out
//	                                              ^   |
//	                                              |   v
//	                                      feedback gain <- loop low-pass
//
// Each line feeds only itself. The feedback gain is capped at MaxFeedback
// and the loop filters never boost, so the network is stable for every
// control value.
package reverb

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/dsp/delay"
	"github.com/cwbudde/algo-room/dsp/filter/biquad"
	"github.com/cwbudde/algo-room/dsp/filter/design"
	"github.com/cwbudde/algo-room/dsp/graph"
	"github.com/cwbudde/algo-room/dsp/param"
)

const (
	// MaxFeedback is the hard ceiling for the per-line loop gain.
	MaxFeedback = 0.95

	minFeedback = 0.28
	maxFeedback = 0.84

	maxPreDelaySeconds = 0.25
	maxLines           = 8

	wetSumScale   = 0.5
	shelfFreq     = 4000.0
	shelfGainDB   = -3.0
	defaultRamp   = 0.03
	coeffInterval = 32
)

// DefaultLineTimes are the loop lengths in milliseconds. They are close to
// mutually prime so the modes of the four lines do not stack.
var DefaultLineTimes = []float64{31, 37, 41, 53}

// ErrInvalidConfig is wrapped by every constructor validation failure.
var ErrInvalidConfig = errors.New("reverb: invalid config")

// Coefficients is everything the bus needs from the control side.
type Coefficients struct {
	Wet        float64 // output gain
	PreDelay   float64 // seconds
	LowpassHz  float64 // input and loop damping cutoff
	HighpassHz float64 // input high-pass cutoff
	Feedback   float64 // per-line loop gain
}

// Size maps the space control s ∈ [0, 1] to bus coefficients. s is
// clamped first; NaN counts as 0.
func Size(s float64) Coefficients {
	s = core.Clamp01(s)
	return Coefficients{
		Wet:        Wet(s),
		PreDelay:   0.010 + 0.180*s,
		LowpassHz:  7800 - 4200*s,
		HighpassHz: 120 + 240*s,
		Feedback:   math.Min(math.Min(minFeedback+(maxFeedback-minFeedback)*s, maxFeedback), MaxFeedback),
	}
}

// Wet returns the wet gain for space s.
func Wet(s float64) float64 {
	return 0.05 + 0.95*core.Clamp01(s)
}

// Sanitize clamps hand-built coefficients into the ranges the bus can run
// with. Feedback is always re-capped at MaxFeedback.
func (c Coefficients) Sanitize() Coefficients {
	return Coefficients{
		Wet:        core.Clamp(c.Wet, 0, 1),
		PreDelay:   core.Clamp(c.PreDelay, 0, maxPreDelaySeconds),
		LowpassHz:  core.Clamp(c.LowpassHz, 20, 20000),
		HighpassHz: core.Clamp(c.HighpassHz, 20, 2000),
		Feedback:   core.Clamp(c.Feedback, 0, MaxFeedback),
	}
}

// Option configures a Bus.
type Option func(*config) error

type config struct {
	lineTimes []float64
	ramp      float64
}

// WithLineTimes overrides the loop lengths (milliseconds, 1 to 8 lines).
func WithLineTimes(ms ...float64) Option {
	return func(c *config) error {
		if len(ms) == 0 || len(ms) > maxLines {
			return fmt.Errorf("%w: need 1..%d lines, got %d", ErrInvalidConfig, maxLines, len(ms))
		}
		for _, v := range ms {
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: line time must be > 0: %f", ErrInvalidConfig, v)
			}
		}
		c.lineTimes = append([]float64(nil), ms...)
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

type loop struct {
	line    *delay.Line
	length  int
	damping *biquad.Section
}

// Bus is the reverb bus. Apply and SetSize may be called between blocks;
// Process and ProcessSample run the audio. A Bus is not safe for
// concurrent use.
type Bus struct {
	sampleRate float64
	lineTimes  []float64

	pre      *delay.Line
	highpass *biquad.Section
	lowpass  *biquad.Section
	shelf    *biquad.Section
	loops    []loop

	wet      *param.Smoother
	preDelay *param.Smoother // samples
	lpHz     *param.Smoother
	hpHz     *param.Smoother
	feedback *param.Smoother

	target    Coefficients
	countdown int
}

// New builds the network at sampleRate and sets it to Size(0.35).
func New(sampleRate float64, opts ...Option) (*Bus, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("reverb: %w", err)
	}

	cfg := config{lineTimes: DefaultLineTimes, ramp: defaultRamp}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	pre, err := delay.NewSeconds(maxPreDelaySeconds, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("reverb: pre-delay: %w", err)
	}

	b := &Bus{
		sampleRate: sampleRate,
		lineTimes:  cfg.lineTimes,
		pre:        pre,
		highpass:   biquad.NewSection(biquad.Identity()),
		lowpass:    biquad.NewSection(biquad.Identity()),
		shelf:      biquad.NewSection(design.HighShelf(shelfFreq, shelfGainDB, 0, sampleRate)),
	}

	for _, ms := range cfg.lineTimes {
		n := max(1, int(math.Round(core.MillisToSamples(ms, sampleRate))))
		line, err := delay.New(n)
		if err != nil {
			return nil, fmt.Errorf("reverb: line %.1f ms: %w", ms, err)
		}
		b.loops = append(b.loops, loop{
			line:    line,
			length:  n,
			damping: biquad.NewSection(biquad.Identity()),
		})
	}

	initial := Size(0.35)
	smoothers := []struct {
		dst **param.Smoother
		v   float64
	}{
		{&b.wet, initial.Wet},
		{&b.preDelay, initial.PreDelay * sampleRate},
		{&b.lpHz, initial.LowpassHz},
		{&b.hpHz, initial.HighpassHz},
		{&b.feedback, initial.Feedback},
	}
	for _, s := range smoothers {
		sm, err := param.NewSmoother(sampleRate, cfg.ramp, s.v)
		if err != nil {
			return nil, fmt.Errorf("reverb: %w", err)
		}
		*s.dst = sm
	}

	b.target = initial
	b.updateFilters()
	return b, nil
}

// SetSize is Apply(Size(s)).
func (b *Bus) SetSize(s float64) {
	b.Apply(Size(s))
}

// Apply sets new coefficient targets. It does not allocate or block; the
// values ramp in over the configured smoothing time.
func (b *Bus) Apply(c Coefficients) {
	c = c.Sanitize()
	b.target = c
	b.wet.SetTarget(c.Wet)
	b.preDelay.SetTarget(c.PreDelay * b.sampleRate)
	b.lpHz.SetTarget(c.LowpassHz)
	b.hpHz.SetTarget(c.HighpassHz)
	b.feedback.SetTarget(c.Feedback)
}

// Target returns the coefficients most recently applied.
func (b *Bus) Target() Coefficients { return b.target }

// Feedback returns the loop gain currently in effect.
func (b *Bus) Feedback() float64 { return b.feedback.Value() }

// LineLengths returns the loop lengths in samples.
func (b *Bus) LineLengths() []int {
	out := make([]int, len(b.loops))
	for i, l := range b.loops {
		out[i] = l.length
	}
	return out
}

func (b *Bus) updateFilters() {
	lp := design.Lowpass(b.lpHz.Value(), 0, b.sampleRate)
	b.lowpass.SetCoefficients(lp)
	for i := range b.loops {
		b.loops[i].damping.SetCoefficients(lp)
	}
	b.highpass.SetCoefficients(design.Highpass(b.hpHz.Value(), 0, b.sampleRate))
}

// ProcessSample runs one input sample through the bus and returns the
// wet output.
func (b *Bus) ProcessSample(in float64) float64 {
	if b.countdown <= 0 {
		b.updateFilters()
		b.countdown = coeffInterval
	}
	b.countdown--

	wet := b.wet.Next()
	preDelay := b.preDelay.Next()
	b.lpHz.Next()
	b.hpHz.Next()
	g := b.feedback.Next()

	if math.IsNaN(in) || math.IsInf(in, 0) {
		in = 0
	}

	b.pre.Write(in)
	x := b.pre.ReadFractional(preDelay)
	x = b.highpass.ProcessSample(x)
	x = b.lowpass.ProcessSample(x)

	sum := 0.0
	for i := range b.loops {
		l := &b.loops[i]
		y := l.line.Read(l.length - 1)
		sum += y
		fb := l.damping.ProcessSample(y) * g
		l.line.Write(core.FlushDenormals(x + fb))
	}

	return b.shelf.ProcessSample(sum*wetSumScale) * wet
}

// Process runs src through the bus and writes the wet output to dst.
// dst and src may alias.
func (b *Bus) Process(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = b.ProcessSample(src[i])
	}
}

// Reset clears every delay line and filter and snaps the smoothers to
// their targets.
func (b *Bus) Reset() {
	b.pre.Reset()
	b.highpass.Reset()
	b.lowpass.Reset()
	b.shelf.Reset()
	for i := range b.loops {
		b.loops[i].line.Reset()
		b.loops[i].damping.Reset()
	}
	for _, s := range []*param.Smoother{b.wet, b.preDelay, b.lpHz, b.hpHz, b.feedback} {
		s.Snap(s.Target())
	}
	b.countdown = 0
}

// Topology returns the bus wiring. Every loop closes through a feedback
// edge into its delay line.
func (b *Bus) Topology() *graph.Graph {
	g := graph.New("reverb")
	add := func(id string, kind graph.Kind) {
		_ = g.AddNode(id, kind, graph.Mono, graph.Mono)
	}
	link := func(from, to string) {
		_ = g.Connect(from, to)
	}

	add("in", graph.KindSource)
	add("predelay", graph.KindDelay)
	add("highpass", graph.KindFilter)
	add("lowpass", graph.KindFilter)
	add("wetsum", graph.KindSum)
	add("shelf", graph.KindFilter)
	add("wet", graph.KindGain)
	add("out", graph.KindOutput)
	link("in", "predelay")
	link("predelay", "highpass")
	link("highpass", "lowpass")

	for i := range b.loops {
		line := fmt.Sprintf("line%d", i)
		damp := fmt.Sprintf("damp%d", i)
		fb := fmt.Sprintf("fb%d", i)
		add(line, graph.KindDelay)
		add(damp, graph.KindFilter)
		add(fb, graph.KindGain)
		link("lowpass", line)
		link(line, damp)
		link(damp, fb)
		_ = g.Feedback(fb, line)
		link(line, "wetsum")
	}

	link("wetsum", "shelf")
	link("shelf", "wet")
	link("wet", "out")
	return g
}
