// Package session wires the installation together: the analyser reads the
// engine's monitor tap, the features and pointer gestures move the
// parameters, and the controller publishes fresh coefficients to the
// engine once per frame.
//
// A Session has a single-writer discipline. Frame and the pointer methods
// must be called from one goroutine (the host's UI loop); Render may run
// on the audio goroutine concurrently with them.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/dsp/graph"
	"github.com/cwbudde/algo-room/dsp/spectrum"
	"github.com/cwbudde/algo-room/room/control"
	"github.com/cwbudde/algo-room/room/engine"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/mapper"
	"github.com/cwbudde/algo-room/room/params"
	"github.com/cwbudde/algo-room/room/stem"
)

// ErrInvalidConfig is wrapped by option validation failures.
var ErrInvalidConfig = errors.New("session: invalid config")

// Option configures a Session.
type Option func(*config) error

type config struct {
	proc         core.ProcessorConfig
	logger       *slog.Logger
	idleDelay    time.Duration
	analyzerSize int
	width        float64
	height       float64
	clock        func() time.Time
}

// WithSampleRate sets the render rate.
func WithSampleRate(sampleRate float64) Option {
	return func(c *config) error {
		if err := core.ValidateSampleRate(sampleRate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.proc.SampleRate = sampleRate
		return nil
	}
}

// WithBlockSize sets the engine's internal block size.
func WithBlockSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidConfig, n)
		}
		c.proc.BlockSize = n
		return nil
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidConfig)
		}
		c.logger = l
		return nil
	}
}

// WithIdleDelay sets how long the pointer must rest before the autopilot
// engages.
func WithIdleDelay(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return fmt.Errorf("%w: idle delay must be >= 0: %v", ErrInvalidConfig, d)
		}
		c.idleDelay = d
		return nil
	}
}

// WithAnalyzerSize sets the FFT size of the feature analyser.
func WithAnalyzerSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: analyzer size must be > 0: %d", ErrInvalidConfig, n)
		}
		c.analyzerSize = n
		return nil
	}
}

// WithViewport sets the initial viewport in pixels.
func WithViewport(width, height float64) Option {
	return func(c *config) error {
		if !(width > 0) || !(height > 0) {
			return fmt.Errorf("%w: viewport %vx%v", ErrInvalidConfig, width, height)
		}
		c.width, c.height = width, height
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
		}
		c.clock = now
		return nil
	}
}

// Session is one running installation.
type Session struct {
	log   *slog.Logger
	clock func() time.Time

	params     params.Canonical
	mapper     *mapper.Mapper
	controller *control.Controller
	engine     *engine.Engine
	analyzer   *spectrum.Analyzer

	block    []float64
	features feature.Snapshot
	frames   uint64
}

// New starts a session for the two decoded stems. The percussive stem
// sits left of centre and the melodic stem right of centre.
func New(percussive, melodic []float64, opts ...Option) (*Session, error) {
	cfg := config{
		proc:      core.DefaultProcessorConfig(),
		logger:    slog.Default(),
		idleDelay: mapper.DefaultIdleDelay,
		width:     1280,
		height:    720,
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	analyzer, err := spectrum.NewAnalyzer(cfg.analyzerSize)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	layout := control.DefaultStems()
	eng, err := engine.New([control.NumStems]engine.Source{
		{Buffer: percussive, Kind: layout[0].Kind, BasePan: layout[0].BasePan},
		{Buffer: melodic, Kind: layout[1].Kind, BasePan: layout[1].BasePan},
	},
		engine.WithSampleRate(cfg.proc.SampleRate),
		engine.WithBlockSize(cfg.proc.BlockSize),
		engine.WithMonitorSize(analyzer.Size()),
	)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		log:      cfg.logger,
		clock:    cfg.clock,
		params:   params.Default(),
		engine:   eng,
		analyzer: analyzer,
		block:    make([]float64, analyzer.Size()),
	}

	s.mapper, err = mapper.New(&s.params, s.clock(),
		mapper.WithIdleDelay(cfg.idleDelay),
		mapper.WithViewport(cfg.width, cfg.height),
	)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s.controller, err = control.New(eng, layout)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.controller.Step(s.params, s.features)

	s.log.Info("session started",
		slog.Float64("sample_rate", eng.SampleRate()),
		slog.Int("block_size", eng.BlockSize()),
		slog.Int("analyzer_size", analyzer.Size()),
		slog.Int("percussive_len", eng.StemLen(0)),
		slog.Int("melodic_len", eng.StemLen(1)),
	)
	return s, nil
}

// Frame runs one UI frame: analysis, feature extraction, mapping and
// coefficient publication, in that order. It returns the frame's
// features.
func (s *Session) Frame() feature.Snapshot {
	now := s.clock()

	s.engine.Monitor(s.block)
	bins := s.analyzer.Process(s.block)
	s.features = feature.Extract(bins, s.block)

	wasDrifting := s.mapper.Autopiloting()
	s.mapper.Update(now, s.features)
	if drifting := s.mapper.Autopiloting(); drifting != wasDrifting {
		s.log.Debug("autopilot", slog.Bool("engaged", drifting), slog.Duration("idle", s.mapper.IdleFor(now)))
	}

	s.controller.Step(s.params, s.features)
	s.frames++
	return s.features
}

func (s *Session) gesture(apply func(now time.Time)) {
	from := s.mapper.State()
	apply(s.clock())
	if to := s.mapper.State(); to != from {
		s.log.Debug("gesture", slog.String("from", from.String()), slog.String("to", to.String()))
	}
}

// PointerDown forwards a pointer press at viewport pixel (x, y).
func (s *Session) PointerDown(x, y float64) {
	s.gesture(func(now time.Time) { s.mapper.PointerDown(x, y, now) })
}

// PointerMove forwards a pointer move.
func (s *Session) PointerMove(x, y float64, held bool) {
	s.gesture(func(now time.Time) { s.mapper.PointerMove(x, y, held, now) })
}

// PointerUp forwards a pointer release.
func (s *Session) PointerUp() {
	s.gesture(s.mapper.PointerUp)
}

// SetViewport updates the viewport size. Invalid sizes are ignored.
func (s *Session) SetViewport(width, height float64) {
	s.mapper.SetViewport(width, height)
}

// Render fills interleaved stereo float32 frames. It is safe to call from
// the audio goroutine.
func (s *Session) Render(interleaved []float32) int {
	return s.engine.Render(interleaved)
}

// RenderStereo fills separate left and right buffers.
func (s *Session) RenderStereo(left, right []float64) int {
	return s.engine.RenderStereo(left, right)
}

// Params returns the current parameter snapshot.
func (s *Session) Params() params.Canonical { return s.params }

// Features returns the features of the last frame.
func (s *Session) Features() feature.Snapshot { return s.features }

// Cube returns the current hit area for the renderer.
func (s *Session) Cube() mapper.Cube { return s.mapper.Cube() }

// State returns the active gesture.
func (s *Session) State() mapper.DragState { return s.mapper.State() }

// Autopiloting reports whether the idle drift is active.
func (s *Session) Autopiloting() bool { return s.mapper.Autopiloting() }

// Coefficients returns the last published coefficient set.
func (s *Session) Coefficients() control.Coefficients { return s.controller.Last() }

// Frames returns the number of UI frames run.
func (s *Session) Frames() uint64 { return s.frames }

// SampleRate returns the render rate.
func (s *Session) SampleRate() float64 { return s.engine.SampleRate() }

// Topology returns the full processing graph.
func (s *Session) Topology() (*graph.Graph, error) { return s.engine.Topology() }

// StemKinds returns the stem voicings in slot order.
func (s *Session) StemKinds() [control.NumStems]stem.Kind {
	var out [control.NumStems]stem.Kind
	for i, st := range s.controller.Stems() {
		out[i] = st.Kind
	}
	return out
}
