package session

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-room/dsp/spectrum"
	"github.com/cwbudde/algo-room/internal/testutil"
	"github.com/cwbudde/algo-room/room/mapper"
	"github.com/cwbudde/algo-room/room/params"
	"github.com/cwbudde/algo-room/room/stem"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newSession(t *testing.T, opts ...Option) (*Session, *fakeClock, *bytes.Buffer) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	opts = append([]Option{WithClock(clock.Now), WithLogger(logger), WithViewport(1000, 500)}, opts...)
	s, err := New(
		testutil.DeterministicNoise(3, 0.7, 48000),
		testutil.DeterministicSine(330, 48000, 0.5, 36000),
		opts...,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, clock, &logs
}

func TestNewPublishesInitialCoefficients(t *testing.T) {
	s, _, logs := newSession(t)
	c := s.Coefficients()
	testutil.RequireNear(t, "percussive dry", c.Stems[0].Dry, 1, 0)
	testutil.RequireNear(t, "reverb wet", c.Reverb.Wet, 0.3825, 1e-12)
	if s.Params() != params.Default() {
		t.Fatalf("Params() = %v, want defaults", s.Params())
	}
	if kinds := s.StemKinds(); kinds[0] != stem.Percussive || kinds[1] != stem.Melodic {
		t.Fatalf("StemKinds() = %v", kinds)
	}
	if !strings.Contains(logs.String(), "session started") {
		t.Fatalf("missing start log: %s", logs.String())
	}
}

func TestFrameExtractsFeaturesFromOutput(t *testing.T) {
	s, clock, _ := newSession(t)
	if f := s.Frame(); f.RMS != 0 {
		t.Fatalf("Frame() before rendering RMS = %v, want 0", f.RMS)
	}

	s.Render(make([]float32, 2*4096))
	clock.Advance(16 * time.Millisecond)
	f := s.Frame()
	if f.RMS <= 0 || f.Bass <= 0 {
		t.Fatalf("Frame() = %+v, want audible features", f)
	}
	if s.Features() != f || s.Frames() != 2 {
		t.Fatalf("Features()/Frames() out of sync")
	}
}

func TestSpaceDragThroughSession(t *testing.T) {
	s, clock, logs := newSession(t)

	s.PointerDown(500, 250)
	if _, ok := s.State().(mapper.DraggingSpaceControl); !ok {
		t.Fatalf("State() = %v, want space drag", s.State())
	}
	clock.Advance(50 * time.Millisecond)
	s.PointerMove(500, 10, true)
	s.Frame()

	testutil.RequireNear(t, "space", s.Params().Space(), 1, 0)
	testutil.RequireNear(t, "reverb wet", s.Coefficients().Reverb.Wet, 1, 1e-12)

	s.PointerUp()
	out := logs.String()
	if !strings.Contains(out, "from=idle to=space") || !strings.Contains(out, "from=space to=idle") {
		t.Fatalf("gesture transitions not logged: %s", out)
	}
}

func TestFieldDragMovesStems(t *testing.T) {
	s, _, _ := newSession(t)
	s.PointerDown(0, 0)
	s.Frame()
	c := s.Coefficients()
	testutil.RequireNear(t, "dry", c.Stems[0].Dry, 0.2, 1e-12)
	testutil.RequireNear(t, "lowpass", c.Stems[1].LowpassHz, 2200, 1e-9)
}

func TestAutopilotEngagesAfterIdle(t *testing.T) {
	s, clock, logs := newSession(t)
	clock.Advance(time.Second)
	s.Frame()
	if s.Autopiloting() {
		t.Fatal("autopilot engaged early")
	}

	clock.Advance(time.Second)
	s.Frame()
	if !s.Autopiloting() {
		t.Fatal("autopilot not engaged after idle delay")
	}
	if !strings.Contains(logs.String(), "engaged=true") {
		t.Fatalf("autopilot transition not logged: %s", logs.String())
	}

	s.PointerDown(10, 10)
	clock.Advance(16 * time.Millisecond)
	s.Frame()
	if s.Autopiloting() {
		t.Fatal("autopilot still running during a drag")
	}
}

func TestCubeFollowsViewport(t *testing.T) {
	s, _, _ := newSession(t)
	s.SetViewport(800, 600)
	c := s.Cube()
	if c.CenterX != 400 || c.CenterY != 300 {
		t.Fatalf("Cube() centre = (%v, %v), want (400, 300)", c.CenterX, c.CenterY)
	}
	s.SetViewport(-1, 0)
	if s.Cube() != c {
		t.Fatal("invalid viewport was applied")
	}
}

func TestRenderConcurrentWithFrames(t *testing.T) {
	s, clock, _ := newSession(t, WithBlockSize(256))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]float32, 2*256)
		for range 300 {
			s.Render(buf)
		}
	}()
	for i := range 100 {
		clock.Advance(16 * time.Millisecond)
		if i%10 == 0 {
			s.PointerDown(float64(i), float64(i))
			s.PointerUp()
		}
		s.Frame()
	}
	wg.Wait()
}

func TestTopology(t *testing.T) {
	s, _, _ := newSession(t)
	g, err := s.Topology()
	if err != nil {
		t.Fatalf("Topology() error = %v", err)
	}
	if len(g.Nodes()) == 0 {
		t.Fatal("empty topology")
	}
}

func TestNewErrors(t *testing.T) {
	buf := []float64{0, 1}
	tests := []struct {
		name string
		perc []float64
		opts []Option
		want error
	}{
		{"empty stem", nil, nil, stem.ErrEmptyBuffer},
		{"analyzer size", buf, []Option{WithAnalyzerSize(1000)}, spectrum.ErrInvalidSize},
		{"nil logger", buf, []Option{WithLogger(nil)}, ErrInvalidConfig},
		{"nil clock", buf, []Option{WithClock(nil)}, ErrInvalidConfig},
		{"sample rate", buf, []Option{WithSampleRate(-48000)}, ErrInvalidConfig},
		{"block size", buf, []Option{WithBlockSize(0)}, ErrInvalidConfig},
		{"idle delay", buf, []Option{WithIdleDelay(-time.Second)}, ErrInvalidConfig},
		{"viewport", buf, []Option{WithViewport(0, 100)}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.perc, buf, tt.opts...); !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}
