package mapper

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-room/internal/testutil"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/params"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMapper(t *testing.T, w, h float64) (*Mapper, *params.Canonical) {
	t.Helper()
	p := params.Default()
	m, err := New(&p, t0, WithViewport(w, h))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m, &p
}

func at(d time.Duration) time.Time { return t0.Add(d) }

func TestPointerDownDisambiguation(t *testing.T) {
	m, _ := newMapper(t, 1000, 1000)
	cube := m.Cube()
	// 0.12 * 1000 * (0.75 + 0.5*0.35)
	testutil.RequireNear(t, "radius", cube.Radius, 111, 1e-9)

	tests := []struct {
		name string
		dx   float64
		want DragState
	}{
		{"centre", 0, DraggingSpaceControl{AnchorY: 500, AnchorSpace: 0.35}},
		{"just inside", 110.9, DraggingSpaceControl{AnchorY: 500, AnchorSpace: 0.35}},
		{"just outside", 111.1, DraggingField{}},
		{"outside", 300, DraggingField{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMapper(t, 1000, 1000)
			m.PointerDown(500+tt.dx, 500, at(time.Second))
			if got := m.State(); got != tt.want {
				t.Fatalf("State() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSpaceDragScenario(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		want   float64
	}{
		{"short viewport", 500, 1.0},
		{"tall viewport", 1000, 0.35 + 240.0/450},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := newMapper(t, 1000, tt.height)
			cy := tt.height / 2
			m.PointerDown(500, cy, at(0))
			m.PointerMove(500, cy-240, true, at(100*time.Millisecond))
			testutil.RequireNear(t, "space", p.Space(), tt.want, 1e-12)

			// Dragging down past the anchor clamps at zero.
			m.PointerMove(500, cy+5000, true, at(200*time.Millisecond))
			testutil.RequireNear(t, "space", p.Space(), 0, 0)

			m.PointerUp(at(300 * time.Millisecond))
			if _, ok := m.State().(Idle); !ok {
				t.Fatalf("State() = %v, want idle", m.State())
			}
		})
	}
}

func TestFieldAtCentre(t *testing.T) {
	got := FieldAt(0, 0)
	want := Field{Distance: 0.5, Width: 0, Focus: 0.5, Motion: 0.56}
	if got != want {
		t.Fatalf("FieldAt(0, 0) = %+v, want %+v", got, want)
	}
}

func TestFieldDragMapsCorners(t *testing.T) {
	m, p := newMapper(t, 1000, 800)
	m.PointerDown(0, 0, at(0))
	if _, ok := m.State().(DraggingField); !ok {
		t.Fatalf("State() = %v, want field", m.State())
	}
	testutil.RequireNear(t, "distance", p.Distance(), 1, 0)
	testutil.RequireNear(t, "width", p.Width(), 1, 0)
	testutil.RequireNear(t, "focus", p.Focus(), 0, 0)
	testutil.RequireNear(t, "motion", p.Motion(), 0.12, 1e-12)
	testutil.RequireNear(t, "x", p.X(), -1, 0)
	testutil.RequireNear(t, "y", p.Y(), 1, 0)

	// Off-screen positions clamp.
	m.PointerMove(5000, 5000, true, at(10*time.Millisecond))
	testutil.RequireNear(t, "distance", p.Distance(), 0, 0)
	testutil.RequireNear(t, "focus", p.Focus(), 1, 0)
	testutil.RequireNear(t, "motion", p.Motion(), 1, 1e-12)
	if p.Space() != 0.35 {
		t.Fatalf("field drag changed space to %v", p.Space())
	}
}

func TestMalformedPointerInputIsNoOp(t *testing.T) {
	m, p := newMapper(t, 1000, 1000)
	before := *p

	m.PointerMove(10, 10, true, at(time.Second))
	m.PointerUp(at(time.Second))
	m.PointerDown(math.NaN(), 10, at(time.Second))
	m.PointerDown(10, math.Inf(1), at(time.Second))

	if *p != before {
		t.Fatalf("params changed: %v, want %v", p, before)
	}
	if _, ok := m.State().(Idle); !ok {
		t.Fatalf("State() = %v, want idle", m.State())
	}
	if got := m.IdleFor(at(time.Second)); got != time.Second {
		t.Fatalf("IdleFor() = %v, want 1s", got)
	}

	m.PointerDown(0, 0, at(2*time.Second))
	m.PointerMove(900, 900, false, at(3*time.Second))
	if p.X() != -1 {
		t.Fatalf("move without held button changed x to %v", p.X())
	}
}

func TestIdleTransition(t *testing.T) {
	m, p := newMapper(t, 1000, 1000)
	var f feature.Snapshot

	m.Update(at(time.Second), f)
	m.Update(at(DefaultIdleDelay), f)
	if m.Autopiloting() {
		t.Fatal("autopilot engaged at exactly the idle delay")
	}
	if *p != params.Default() {
		t.Fatalf("params moved before idle: %v", p)
	}

	m.Update(at(1500*time.Millisecond), f)
	if !m.Autopiloting() {
		t.Fatal("autopilot not engaged after idle delay")
	}
	if *p == params.Default() {
		t.Fatal("params did not move under autopilot")
	}

	// A pointer event resets the timer.
	m.PointerDown(0, 0, at(2*time.Second))
	m.PointerUp(at(2 * time.Second))
	snapshot := *p
	m.Update(at(3*time.Second), f)
	if m.Autopiloting() || *p != snapshot {
		t.Fatal("autopilot ran less than the idle delay after a pointer event")
	}
	m.Update(at(3500*time.Millisecond), f)
	if !m.Autopiloting() {
		t.Fatal("autopilot did not resume")
	}
}

func TestAutopilotDoesNotRunDuringDrag(t *testing.T) {
	m, p := newMapper(t, 1000, 1000)
	m.PointerDown(0, 0, at(0))
	snapshot := *p
	m.Update(at(10*time.Second), feature.Snapshot{Bass: 1, Mid: 1, High: 1, RMS: 1})
	if m.Autopiloting() || *p != snapshot {
		t.Fatal("autopilot moved params while a drag was held")
	}
}

func TestAutopilotBlendsWithoutJumps(t *testing.T) {
	m, p := newMapper(t, 1000, 1000)
	m.PointerDown(0, 0, at(0))
	m.PointerUp(at(0))
	f := feature.Snapshot{Bass: 0.4, Mid: 0.6, High: 0.8, RMS: 0.5}

	now := 2 * time.Second
	prev := *p
	for range 3000 {
		now += 16 * time.Millisecond
		m.Update(at(now), f)
		for name, d := range map[string]float64{
			"distance": p.Distance() - prev.Distance(),
			"width":    p.Width() - prev.Width(),
			"focus":    p.Focus() - prev.Focus(),
			"motion":   p.Motion() - prev.Motion(),
			"x":        p.X() - prev.X(),
			"y":        p.Y() - prev.Y(),
		} {
			if math.Abs(d) > 0.02+1e-12 {
				t.Fatalf("%s jumped by %v in one frame", name, d)
			}
		}
		if math.Abs(p.Space()-prev.Space()) > 0.004+1e-12 {
			t.Fatalf("space jumped by %v in one frame", p.Space()-prev.Space())
		}
		prev = *p
	}

	testutil.RequireInRange(t, "x", p.X(), -0.8, 0.8)
	testutil.RequireInRange(t, "y", p.Y(), -0.7, 0.7)
	testutil.RequireInRange(t, "space", p.Space(), 0.25, 0.9)
}

func TestSpaceTarget(t *testing.T) {
	a := DefaultAutopilot()
	testutil.RequireNear(t, "SpaceTarget(0, 0)", a.SpaceTarget(0, 0), 0.525, 1e-12)
	testutil.RequireNear(t, "SpaceTarget(0, 1)", a.SpaceTarget(0, 1), 0.625, 1e-12)
	peak := math.Pi / 2 / 0.12
	testutil.RequireNear(t, "SpaceTarget(peak, 1)", a.SpaceTarget(peak, 1), 0.90, 1e-12)
}

func TestPumpScalesCube(t *testing.T) {
	m, _ := newMapper(t, 1000, 1000)
	r0 := m.Cube().Radius
	for i := range 200 {
		m.Update(at(time.Duration(i)*time.Millisecond), feature.Snapshot{Bass: 1, RMS: 1})
	}
	testutil.RequireNear(t, "Pump()", m.Pump(), 1, 1e-9)
	testutil.RequireNear(t, "radius", m.Cube().Radius, r0*1.18, 1e-6)
}

func TestSetViewportIgnoresInvalid(t *testing.T) {
	m, _ := newMapper(t, 800, 600)
	for _, v := range [][2]float64{{0, 600}, {-1, 600}, {800, math.NaN()}, {math.Inf(1), 600}} {
		m.SetViewport(v[0], v[1])
	}
	if w, h := m.Viewport(); w != 800 || h != 600 {
		t.Fatalf("Viewport() = %vx%v, want 800x600", w, h)
	}
	m.SetViewport(1024, 768)
	if c := m.Cube(); c.CenterX != 512 || c.CenterY != 384 {
		t.Fatalf("Cube() centre = (%v, %v), want (512, 384)", c.CenterX, c.CenterY)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil, t0); !errors.Is(err, ErrNilParams) {
		t.Fatalf("New(nil) error = %v, want ErrNilParams", err)
	}
	p := params.Default()
	if _, err := New(&p, t0, WithIdleDelay(-time.Second)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("WithIdleDelay(-1s) error = %v", err)
	}
	if _, err := New(&p, t0, WithViewport(0, 10)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("WithViewport(0, 10) error = %v", err)
	}
}

func TestStateStrings(t *testing.T) {
	for _, tt := range []struct {
		s    DragState
		want string
	}{
		{Idle{}, "idle"},
		{DraggingSpaceControl{}, "space"},
		{DraggingField{}, "field"},
	} {
		if got := tt.s.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}
