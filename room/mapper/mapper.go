// Package mapper turns pointer gestures and idle time into parameter
// changes.
//
// A pointer-down on the cube starts a space drag; anywhere else it starts a
// field drag. After IdleDelay without pointer activity the autopilot blends
// the parameters toward slowly drifting, audio-biased targets, using the
// same field formulas a drag would use so nothing jumps when a visitor
// takes over again.
//
// A Mapper is not safe for concurrent use. Pointer events and Update must
// come from the same goroutine.
package mapper

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/params"
)

const (
	// DefaultIdleDelay is how long the pointer must be quiet before the
	// autopilot engages.
	DefaultIdleDelay = 1400 * time.Millisecond

	defaultWidth  = 1280
	defaultHeight = 720

	pumpBlend  = 0.2
	maxFrameDt = 0.25
)

var (
	// ErrNilParams is returned when New gets no parameter set.
	ErrNilParams = errors.New("mapper: nil params")
	// ErrInvalidConfig is wrapped by option validation failures.
	ErrInvalidConfig = errors.New("mapper: invalid config")
)

// Cube is the hit area for space drags. The renderer draws the same
// circle the mapper tests against.
type Cube struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Radius  float64 `json:"radius"`
}

// Contains reports whether (x, y) lies strictly inside the cube.
func (c Cube) Contains(x, y float64) bool {
	return math.Hypot(x-c.CenterX, y-c.CenterY) < c.Radius
}

// Option configures a Mapper.
type Option func(*Mapper) error

// WithIdleDelay sets how long the pointer must be quiet before the
// autopilot takes over.
func WithIdleDelay(d time.Duration) Option {
	return func(m *Mapper) error {
		if d < 0 {
			return fmt.Errorf("%w: idle delay must be >= 0: %v", ErrInvalidConfig, d)
		}
		m.idleDelay = d
		return nil
	}
}

// WithAutopilot replaces the drift constants.
func WithAutopilot(a Autopilot) Option {
	return func(m *Mapper) error {
		m.autopilot = a
		return nil
	}
}

// WithViewport sets the initial viewport size in pixels.
func WithViewport(width, height float64) Option {
	return func(m *Mapper) error {
		if !validExtent(width) || !validExtent(height) {
			return fmt.Errorf("%w: viewport %vx%v", ErrInvalidConfig, width, height)
		}
		m.width, m.height = width, height
		return nil
	}
}

// Mapper owns the gesture state and writes into a borrowed parameter set.
type Mapper struct {
	params    *params.Canonical
	state     DragState
	autopilot Autopilot
	idleDelay time.Duration

	width, height float64

	start           time.Time
	lastInteraction time.Time
	lastUpdate      time.Time

	drift    drift
	pump     float64
	drifting bool
}

// New returns a mapper that writes into p. now is the start time used for
// the idle timer and the slow space sweep.
func New(p *params.Canonical, now time.Time, opts ...Option) (*Mapper, error) {
	if p == nil {
		return nil, ErrNilParams
	}

	m := &Mapper{
		params:          p,
		state:           Idle{},
		autopilot:       DefaultAutopilot(),
		idleDelay:       DefaultIdleDelay,
		width:           defaultWidth,
		height:          defaultHeight,
		start:           now,
		lastInteraction: now,
		lastUpdate:      now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func validExtent(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if !core.IsFinite(v) {
			return false
		}
	}
	return true
}

// SetViewport updates the viewport size. Non-positive or non-finite sizes
// are ignored.
func (m *Mapper) SetViewport(width, height float64) {
	if !validExtent(width) || !validExtent(height) {
		return
	}
	m.width, m.height = width, height
}

// Viewport returns the current viewport size.
func (m *Mapper) Viewport() (width, height float64) { return m.width, m.height }

// State returns the active gesture.
func (m *Mapper) State() DragState { return m.state }

// Params returns a copy of the parameter set.
func (m *Mapper) Params() params.Canonical { return *m.params }

// Autopiloting reports whether the last Update drove the drift.
func (m *Mapper) Autopiloting() bool { return m.drifting }

// Pump returns the smoothed audio pump that scales the cube.
func (m *Mapper) Pump() float64 { return m.pump }

// Cube returns the current hit area.
func (m *Mapper) Cube() Cube {
	space := m.params.Space()
	return Cube{
		CenterX: m.width / 2,
		CenterY: m.height / 2,
		Radius:  0.12 * math.Min(m.width, m.height) * (0.75 + 0.5*space) * (1 + 0.18*m.pump),
	}
}

// PointerDown starts a gesture at viewport pixel (x, y).
func (m *Mapper) PointerDown(x, y float64, now time.Time) {
	if !finite(x, y) {
		return
	}
	m.lastInteraction = now

	if m.Cube().Contains(x, y) {
		m.state = DraggingSpaceControl{AnchorY: y, AnchorSpace: m.params.Space()}
		return
	}
	m.state = DraggingField{}
	m.mapField(x, y)
}

// PointerMove continues the active gesture. Moves without a held button or
// without a preceding PointerDown do nothing.
func (m *Mapper) PointerMove(x, y float64, held bool, now time.Time) {
	if !held || !finite(x, y) {
		return
	}

	switch s := m.state.(type) {
	case DraggingSpaceControl:
		m.params.SetSpace(s.AnchorSpace + (s.AnchorY-y)/SpaceDragDivisor(m.height))
	case DraggingField:
		m.mapField(x, y)
	default:
		return
	}
	m.lastInteraction = now
}

// PointerUp ends the active gesture. It does nothing when no gesture is
// active.
func (m *Mapper) PointerUp(now time.Time) {
	if _, ok := m.state.(Idle); ok {
		return
	}
	m.state = Idle{}
	m.lastInteraction = now
}

func (m *Mapper) mapField(x, y float64) {
	FieldAt(Normalize(x, y, m.width, m.height)).applyTo(m.params)
}

// IdleFor returns the time since the last pointer interaction.
func (m *Mapper) IdleFor(now time.Time) time.Duration {
	return now.Sub(m.lastInteraction)
}

// Update advances one frame: it smooths the cube pump and, once the
// pointer has been quiet for longer than the idle delay, blends the
// parameters toward the autopilot targets.
func (m *Mapper) Update(now time.Time, f feature.Snapshot) {
	dt := core.Clamp(now.Sub(m.lastUpdate).Seconds(), 0, maxFrameDt)
	m.lastUpdate = now

	m.pump += (core.Clamp01(0.6*f.Bass+0.4*f.RMS) - m.pump) * pumpBlend

	_, idle := m.state.(Idle)
	m.drifting = idle && m.IdleFor(now) > m.idleDelay
	if !m.drifting {
		return
	}

	a := m.autopilot
	m.drift.advance(a, dt, f)
	tx, ty := m.drift.target(a)

	p := m.params
	x := core.Lerp(p.X(), tx, a.FieldBlend)
	y := core.Lerp(p.Y(), ty, a.FieldBlend)
	field := FieldAt(x, y)

	p.SetDistance(core.Lerp(p.Distance(), field.Distance, a.FieldBlend))
	p.SetWidth(core.Lerp(p.Width(), field.Width, a.FieldBlend))
	p.SetFocus(core.Lerp(p.Focus(), field.Focus, a.FieldBlend))
	p.SetMotion(core.Lerp(p.Motion(), field.Motion, a.FieldBlend))
	p.SetPosition(x, y)

	t := now.Sub(m.start).Seconds()
	p.SetSpace(core.Lerp(p.Space(), a.SpaceTarget(t, f.High), a.SpaceBlend))
}
