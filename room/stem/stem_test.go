package stem

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-room/internal/testutil"
)

const sr = 48000.0

func TestComputeRanges(t *testing.T) {
	steps := []float64{0, 0.25, 0.5, 0.75, 1}
	xs := []float64{-1, -0.5, 0, 0.5, 1}
	for _, kind := range []Kind{Percussive, Melodic} {
		for _, d := range steps {
			for _, w := range steps {
				for _, m := range steps {
					for _, s := range steps {
						for _, x := range xs {
							c := Compute(Input{Distance: d, Width: w, Focus: m, Motion: m, Space: s, PointerX: x, BasePan: kind.DefaultBasePan(), Kind: kind})
							testutil.RequireInRange(t, "dry", c.Dry, 0.10, 1)
							testutil.RequireInRange(t, "send", c.Send, 0, 1)
							testutil.RequireInRange(t, "pan", c.Pan, -1, 1)
							testutil.RequireInRange(t, "side delay", c.SideDelay, 0.001, 0.028)
							testutil.RequireInRange(t, "lfo depth", c.LFODepth, 0, 0.95)
						}
					}
				}
			}
		}
	}
}

func TestComputeClampsHostileInput(t *testing.T) {
	nan := math.NaN()
	c := Compute(Input{Distance: nan, Width: math.Inf(1), Focus: -4, Motion: nan, Space: 9, PointerX: nan, BasePan: 5, Kind: Melodic})
	for name, v := range map[string]float64{
		"dry": c.Dry, "send": c.Send, "pan": c.Pan, "lp": c.LowpassHz,
		"focus": c.FocusHz, "side": c.SideDelay, "rate": c.LFORate, "depth": c.LFODepth,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s = %v, want finite", name, v)
		}
	}
	testutil.RequireInRange(t, "pan", c.Pan, -1, 1)
}

func TestComputeIdempotent(t *testing.T) {
	in := Input{Distance: 0.3, Width: 0.6, Focus: 0.2, Motion: 0.8, Space: 0.7, PointerX: -0.4, BasePan: 0.35, Kind: Melodic}
	if Compute(in) != Compute(in) {
		t.Fatal("Compute() is not a pure function")
	}
}

func TestComputeInitialPercussive(t *testing.T) {
	c := Compute(Input{Focus: 0.5, Motion: 0.12, Space: 0.35, BasePan: -0.35, Kind: Percussive})
	testutil.RequireNear(t, "dry", c.Dry, 1, 0)
	// (0.15 + 0) * (0.35 + 0.85*0.35) * 1.10
	testutil.RequireNear(t, "send", c.Send, 0.15*0.6475*1.10, 1e-12)
	testutil.RequireNear(t, "lowpass", c.LowpassHz, 18000, 0)
	testutil.RequireNear(t, "focus", c.FocusHz, 3575, 1e-9)
	testutil.RequireNear(t, "focus gain", c.FocusGainDB, 9, 0)
	testutil.RequireNear(t, "pan", c.Pan, 0, 0)
	testutil.RequireNear(t, "side gain", c.SideGain, 0, 0)
	testutil.RequireNear(t, "side delay", c.SideDelay, (1+4*0.12)*0.001, 1e-12)
	testutil.RequireNear(t, "lfo rate", c.LFORate, 0.06+1.65*0.12, 1e-12)
	testutil.RequireNear(t, "lfo depth", c.LFODepth, 0.95*0.12, 1e-12)
}

func TestComputeFarWide(t *testing.T) {
	c := Compute(Input{Distance: 1, Width: 1, Focus: 1, Motion: 1, Space: 1, PointerX: 1, BasePan: -0.35, Kind: Melodic})
	testutil.RequireNear(t, "dry", c.Dry, 0.2, 1e-12)
	testutil.RequireNear(t, "send", c.Send, 1, 0)
	testutil.RequireNear(t, "lowpass", c.LowpassHz, 2200, 1e-9)
	testutil.RequireNear(t, "focus", c.FocusHz, 7000, 1e-9)
	testutil.RequireNear(t, "focus gain", c.FocusGainDB, 15, 0)
	testutil.RequireNear(t, "pan", c.Pan, -0.35*0.9+0.55, 1e-12)
	testutil.RequireNear(t, "side gain", c.SideGain, 0.95*0.62, 1e-12)
	testutil.RequireNear(t, "side delay", c.SideDelay, 0.028, 1e-12)
	testutil.RequireNear(t, "lfo depth", c.LFODepth, 0.95, 1e-12)
}

func TestRenderAccumulates(t *testing.T) {
	c, err := New(make([]float64, 100), -0.35, Percussive, sr)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	left := testutil.DC(1, 64)
	right := testutil.DC(-1, 64)
	send := testutil.DC(9, 64)
	c.Render(left, right, send)
	testutil.RequireSliceNearlyEqual(t, left, testutil.DC(1, 64), 0)
	testutil.RequireSliceNearlyEqual(t, right, testutil.DC(-1, 64), 0)
	testutil.RequireSliceNearlyEqual(t, send, make([]float64, 64), 0)
	if c.Position() != 64 {
		t.Fatalf("Position() = %d, want 64", c.Position())
	}
}

func TestRenderLoops(t *testing.T) {
	c, _ := New(testutil.DC(0.5, 10), 0, Melodic, sr)
	buf := make([]float64, 25)
	c.Render(buf, make([]float64, 25), make([]float64, 25))
	if c.Position() != 5 {
		t.Fatalf("Position() = %d, want 5", c.Position())
	}
}

func TestHaasOffset(t *testing.T) {
	c, _ := New(testutil.Impulse(4800, 0), 0, Melodic, sr, WithTrim(1))
	c.Apply(Coefficients{
		Dry:       0,
		SideGain:  0.5,
		SideDelay: 0.010,
		LowpassHz: 20000,
		FocusHz:   1000,
	})
	c.Reset()

	n := 1024
	left, right, send := make([]float64, n), make([]float64, n), make([]float64, n)
	c.Render(left, right, send)

	argmax := func(buf []float64) int {
		best := 0
		for i := range buf {
			if math.Abs(buf[i]) > math.Abs(buf[best]) {
				best = i
			}
		}
		return best
	}
	if got := argmax(left); got > 2 {
		t.Fatalf("left tap peak at %d, want near 0", got)
	}
	if got := argmax(right); got < 478 || got > 483 {
		t.Fatalf("right tap peak at %d, want ~480", got)
	}
	if e := testutil.Energy(right[:400]); e > 1e-6 {
		t.Fatalf("right tap leaked %v before the offset", e)
	}
}

func TestRenderFiniteUnderNoise(t *testing.T) {
	c, _ := New(testutil.DeterministicNoise(5, 1, 9000), 0.35, Melodic, sr)
	c.Apply(Compute(Input{Distance: 0.2, Width: 0.9, Focus: 0.9, Motion: 1, Space: 1, PointerX: 1, BasePan: 0.35, Kind: Melodic}))
	n := 48000
	left, right, send := make([]float64, n), make([]float64, n), make([]float64, n)
	c.Render(left, right, send)
	testutil.RequireFinite(t, left)
	testutil.RequireFinite(t, right)
	testutil.RequireFinite(t, send)
}

func TestRenderDoesNotAllocate(t *testing.T) {
	c, _ := New(testutil.DeterministicNoise(5, 1, 900), 0.35, Melodic, sr)
	left, right, send := make([]float64, 128), make([]float64, 128), make([]float64, 128)
	allocs := testing.AllocsPerRun(50, func() {
		c.Apply(Compute(Input{Distance: 0.5, Kind: Melodic}))
		c.Render(left, right, send)
	})
	if allocs != 0 {
		t.Fatalf("allocs = %v, want 0", allocs)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil, 0, Melodic, sr); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("New(nil) error = %v, want ErrEmptyBuffer", err)
	}
	if _, err := New([]float64{1}, 0, Melodic, -1); err == nil {
		t.Fatal("expected error for negative sample rate")
	}
	if _, err := New([]float64{1}, 0, Melodic, sr, WithTrim(-1)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("WithTrim(-1) error = %v, want ErrInvalidConfig", err)
	}
	c, _ := New([]float64{1}, math.NaN(), Percussive, sr)
	if c.BasePan() != 0 {
		t.Fatalf("BasePan() = %v, want 0 for NaN", c.BasePan())
	}
}

func TestTopology(t *testing.T) {
	c, _ := New([]float64{1}, 0, Percussive, sr)
	g := c.Topology()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, ok := g.Node("side-delay"); !ok {
		t.Fatal("side-delay node missing")
	}
	if g.Name() != "stem-percussive" {
		t.Fatalf("Name() = %q", g.Name())
	}
}
