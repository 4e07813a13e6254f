// Package params holds the canonical control values that drive both the
// audio graph and the visuals.
package params

import (
	"fmt"

	"github.com/cwbudde/algo-room/dsp/core"
)

// Canonical is the normalised parameter set. Every setter clamps, so a
// Canonical reachable through its methods never holds NaN or an
// out-of-range value. It has no internal locking: one goroutine owns it.
type Canonical struct {
	distance float64
	width    float64
	focus    float64
	motion   float64
	space    float64
	x, y     float64
}

// Default returns the start-up state: centred, dry and a medium room.
func Default() Canonical {
	return Canonical{
		focus:  0.5,
		motion: 0.12,
		space:  0.35,
	}
}

// New returns a Canonical with every field clamped.
func New(distance, width, focus, motion, space, x, y float64) Canonical {
	var c Canonical
	c.SetDistance(distance)
	c.SetWidth(width)
	c.SetFocus(focus)
	c.SetMotion(motion)
	c.SetSpace(space)
	c.SetPosition(x, y)
	return c
}

func (c *Canonical) SetDistance(v float64) { c.distance = core.Clamp01(v) }
func (c *Canonical) SetWidth(v float64)    { c.width = core.Clamp01(v) }
func (c *Canonical) SetFocus(v float64)    { c.focus = core.Clamp01(v) }
func (c *Canonical) SetMotion(v float64)   { c.motion = core.Clamp01(v) }
func (c *Canonical) SetSpace(v float64)    { c.space = core.Clamp01(v) }

// SetPosition sets the normalised pointer position.
func (c *Canonical) SetPosition(x, y float64) {
	c.x = core.ClampBipolar(x)
	c.y = core.ClampBipolar(y)
}

func (c Canonical) Distance() float64 { return c.distance }
func (c Canonical) Width() float64    { return c.width }
func (c Canonical) Focus() float64    { return c.focus }
func (c Canonical) Motion() float64   { return c.motion }
func (c Canonical) Space() float64    { return c.space }
func (c Canonical) X() float64        { return c.x }
func (c Canonical) Y() float64        { return c.y }

// Snapshot is a plain copy of the parameters for hosts and renderers.
type Snapshot struct {
	Distance float64 `json:"distance"`
	Width    float64 `json:"width"`
	Focus    float64 `json:"focus"`
	Motion   float64 `json:"motion"`
	Space    float64 `json:"space"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Snapshot returns the exported view.
func (c Canonical) Snapshot() Snapshot {
	return Snapshot{
		Distance: c.distance,
		Width:    c.width,
		Focus:    c.focus,
		Motion:   c.motion,
		Space:    c.space,
		X:        c.x,
		Y:        c.y,
	}
}

// String implements fmt.Stringer.
func (c Canonical) String() string {
	return fmt.Sprintf("distance=%.3f width=%.3f focus=%.3f motion=%.3f space=%.3f x=%.3f y=%.3f",
		c.distance, c.width, c.focus, c.motion, c.space, c.x, c.y)
}
