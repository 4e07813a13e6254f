// Package master implements the output bus: headroom gain, a stereo-linked
// compressor followed by a limiter, a safety clamp and the mono monitor tap
// that feeds the analyser.
package master

import (
	"fmt"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/dsp/dynamics"
	"github.com/cwbudde/algo-room/dsp/graph"
	"github.com/cwbudde/algo-room/dsp/param"
	"github.com/cwbudde/algo-room/room/reverb"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// CeilingDB is the limiter threshold.
	CeilingDB = -1.0
	// LimiterReleaseMs is the limiter release time.
	LimiterReleaseMs = 60.0

	gainRamp = 0.03
)

// HeadroomGain returns the master input gain for space s. Larger rooms add
// more wet energy, so the bus backs off as the reverb opens up.
func HeadroomGain(s float64) float64 {
	return 0.86 - 0.16*reverb.Wet(s)
}

// Bus is the master section. It is not safe for concurrent use.
type Bus struct {
	gain       *param.Smoother
	compressor *dynamics.Compressor
	limiter    *dynamics.Limiter
}

// New returns a master bus at sampleRate with the gain for the default
// space.
func New(sampleRate float64) (*Bus, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	gain, err := param.NewSmoother(sampleRate, gainRamp, HeadroomGain(0.35))
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	comp, err := dynamics.NewCompressor(sampleRate,
		dynamics.WithThreshold(-18),
		dynamics.WithRatio(3),
		dynamics.WithKnee(6),
		dynamics.WithAttack(8),
		dynamics.WithRelease(180),
	)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	lim, err := dynamics.NewLimiter(sampleRate, CeilingDB, LimiterReleaseMs)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	return &Bus{gain: gain, compressor: comp, limiter: lim}, nil
}

// SetHeadroom ramps the input gain to HeadroomGain(s).
func (b *Bus) SetHeadroom(s float64) {
	b.SetGain(HeadroomGain(s))
}

// SetGain ramps the input gain to g. Values are clamped to [0, 1].
func (b *Bus) SetGain(g float64) {
	b.gain.SetTarget(core.Clamp01(g))
}

// Gain returns the current (ramping) input gain.
func (b *Bus) Gain() float64 { return b.gain.Value() }

// GainReductionDB returns the combined compressor and limiter gain of the
// last frame.
func (b *Bus) GainReductionDB() float64 {
	return b.compressor.GainReductionDB() + b.limiter.GainReductionDB()
}

// Process runs left and right through the bus in place and writes the
// post-limiter mono mix into monitor. monitor may be nil. All slices are
// processed up to the shortest stereo length.
func (b *Bus) Process(left, right, monitor []float64) {
	n := min(len(left), len(right))
	left, right = left[:n], right[:n]

	if b.gain.Settled() {
		g := b.gain.Value()
		vecmath.ScaleBlock(left, left, g)
		vecmath.ScaleBlock(right, right, g)
	} else {
		for i := range n {
			g := b.gain.Next()
			left[i] *= g
			right[i] *= g
		}
	}

	for i := range n {
		l, r := b.compressor.ProcessStereo(left[i], right[i])
		l, r = b.limiter.ProcessStereo(l, r)
		left[i] = core.ClampBipolar(l)
		right[i] = core.ClampBipolar(r)
	}

	if monitor == nil {
		return
	}
	m := min(n, len(monitor))
	copy(monitor[:m], left[:m])
	vecmath.AddBlockInPlace(monitor[:m], right[:m])
	vecmath.ScaleBlock(monitor[:m], monitor[:m], 0.5)
}

// Reset clears the detectors and snaps the gain to its target.
func (b *Bus) Reset() {
	b.gain.Snap(b.gain.Target())
	b.compressor.Reset()
	b.limiter.Reset()
}

// Topology returns the bus wiring.
func (b *Bus) Topology() *graph.Graph {
	g := graph.New("master")
	stereo := func(id string, kind graph.Kind) {
		_ = g.AddNode(id, kind, graph.Stereo, graph.Stereo)
	}
	stereo("in", graph.KindSum)
	stereo("headroom", graph.KindGain)
	stereo("compressor", graph.KindDynamics)
	stereo("limiter", graph.KindDynamics)
	stereo("clip", graph.KindDynamics)
	stereo("out", graph.KindOutput)
	_ = g.AddNode("monitor", graph.KindTap, graph.Stereo, graph.Mono)

	_ = g.Connect("in", "headroom")
	_ = g.Connect("headroom", "compressor")
	_ = g.Connect("compressor", "limiter")
	_ = g.Connect("limiter", "clip")
	_ = g.Connect("clip", "out")
	_ = g.Connect("clip", "monitor")
	return g
}
