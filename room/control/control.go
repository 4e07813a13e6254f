// Package control turns the parameter set and the audio features into
// graph coefficients once per frame.
//
// Compute is a pure composition: pointer-driven values and audio-driven
// modulation meet inside it, so each coefficient has exactly one writer.
package control

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/master"
	"github.com/cwbudde/algo-room/room/params"
	"github.com/cwbudde/algo-room/room/reverb"
	"github.com/cwbudde/algo-room/room/stem"
)

// NumStems is the number of stem chains in the graph.
const NumStems = 2

// highSideDelay is the extra Haas offset at full high-band energy.
const highSideDelay = 0.0015

// ErrNilSink is returned when a Controller is built without a sink.
var ErrNilSink = errors.New("control: nil sink")

// Stem describes one stem slot.
type Stem struct {
	Kind    stem.Kind
	BasePan float64
}

// DefaultStems returns the percussive stem on the left and the melodic
// stem on the right.
func DefaultStems() [NumStems]Stem {
	return [NumStems]Stem{
		{Kind: stem.Percussive, BasePan: stem.Percussive.DefaultBasePan()},
		{Kind: stem.Melodic, BasePan: stem.Melodic.DefaultBasePan()},
	}
}

// Coefficients is the full set of targets for one frame.
type Coefficients struct {
	Reverb   reverb.Coefficients         `json:"reverb"`
	Stems    [NumStems]stem.Coefficients `json:"stems"`
	Headroom float64                     `json:"headroom"`
}

// Compute maps parameters and features to coefficients. It is pure and
// recomputes everything from scratch.
func Compute(p params.Canonical, f feature.Snapshot, stems [NumStems]Stem) Coefficients {
	space := p.Space()
	out := Coefficients{
		Reverb:   reverb.Size(space),
		Headroom: master.HeadroomGain(space),
	}

	high := core.Clamp01(f.High)
	for i, s := range stems {
		c := stem.Compute(stem.Input{
			Distance: p.Distance(),
			Width:    p.Width(),
			Focus:    p.Focus(),
			Motion:   p.Motion(),
			Space:    space,
			PointerX: p.X(),
			BasePan:  s.BasePan,
			Kind:     s.Kind,
		})
		c.SideDelay = math.Min(c.SideDelay+highSideDelay*high, stem.MaxSideDelay)
		out.Stems[i] = c
	}
	return out
}

// Sink receives each frame's coefficients. Publish must not block.
type Sink interface {
	Publish(Coefficients)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Coefficients)

// Publish calls f(c).
func (f SinkFunc) Publish(c Coefficients) { f(c) }

// Controller runs Compute each frame and hands the result to its sink.
type Controller struct {
	sink  Sink
	stems [NumStems]Stem
	last  Coefficients
	steps uint64
}

// New returns a controller publishing to sink.
func New(sink Sink, stems [NumStems]Stem) (*Controller, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	return &Controller{sink: sink, stems: stems}, nil
}

// Step computes and publishes the coefficients for one frame.
func (c *Controller) Step(p params.Canonical, f feature.Snapshot) Coefficients {
	out := Compute(p, f, c.stems)
	c.sink.Publish(out)
	c.last = out
	c.steps++
	return out
}

// Last returns the most recently published coefficients.
func (c *Controller) Last() Coefficients { return c.last }

// Steps returns how many frames have been published.
func (c *Controller) Steps() uint64 { return c.steps }

// Stems returns the stem layout.
func (c *Controller) Stems() [NumStems]Stem { return c.stems }
