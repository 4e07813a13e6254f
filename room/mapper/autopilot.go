package mapper

import (
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/room/feature"
)

// Autopilot holds the drift constants used while nobody touches the
// installation. Rates are per frame; frequencies are in cycles per second.
type Autopilot struct {
	RateX, RateY   float64
	FeatureBias    float64
	AmplitudeX     float64
	AmplitudeY     float64
	PhaseOffsetY   float64 // radians
	FieldBlend     float64
	SpaceBlend     float64
	SpaceBase      float64
	SpaceSwing     float64
	SpaceFrequency float64 // radians per second
	SpaceHighBias  float64
}

// DefaultAutopilot returns the stock drift.
func DefaultAutopilot() Autopilot {
	return Autopilot{
		RateX:          0.071,
		RateY:          0.053,
		FeatureBias:    0.02,
		AmplitudeX:     0.8,
		AmplitudeY:     0.7,
		PhaseOffsetY:   1.3,
		FieldBlend:     0.01,
		SpaceBlend:     0.004,
		SpaceBase:      0.25,
		SpaceSwing:     0.55,
		SpaceFrequency: 0.12,
		SpaceHighBias:  0.10,
	}
}

// SpaceTarget returns the space value the drift heads for at t seconds.
func (a Autopilot) SpaceTarget(t, high float64) float64 {
	return core.Clamp01(a.SpaceBase + a.SpaceSwing*(0.5+0.5*math.Sin(a.SpaceFrequency*t)) + a.SpaceHighBias*high)
}

// drift tracks the two phase accumulators between frames.
type drift struct {
	phaseX, phaseY float64 // cycles
}

func (d *drift) advance(a Autopilot, dt float64, f feature.Snapshot) {
	d.phaseX = math.Mod(d.phaseX+dt*(a.RateX+a.FeatureBias*f.Mid), 1)
	d.phaseY = math.Mod(d.phaseY+dt*(a.RateY+a.FeatureBias*f.Bass), 1)
}

func (d *drift) target(a Autopilot) (x, y float64) {
	return a.AmplitudeX * math.Sin(2*math.Pi*d.phaseX),
		a.AmplitudeY * math.Sin(2*math.Pi*d.phaseY+a.PhaseOffsetY)
}
