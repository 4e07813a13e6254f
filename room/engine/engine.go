// Package engine owns the render side of the room: both stem chains, the
// reverb bus and the master bus.
//
// The frame loop publishes control.Coefficients with Publish; the audio
// goroutine picks up the newest set at the start of each block. Neither
// side waits for the other. The only shared buffer is the monitor ring,
// which is copied under a short lock.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/dsp/graph"
	"github.com/cwbudde/algo-room/room/control"
	"github.com/cwbudde/algo-room/room/master"
	"github.com/cwbudde/algo-room/room/reverb"
	"github.com/cwbudde/algo-room/room/stem"
	"github.com/cwbudde/algo-vecmath"
)

const defaultMonitorSize = 2048

// ErrInvalidConfig is wrapped by option validation failures.
var ErrInvalidConfig = errors.New("engine: invalid config")

// Source is one stem: its decoded mono buffer and where it sits.
type Source struct {
	Buffer  []float64
	Kind    stem.Kind
	BasePan float64
}

// Option configures an Engine.
type Option func(*config) error

type config struct {
	proc    core.ProcessorConfig
	monitor int
}

// WithSampleRate sets the render sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(c *config) error {
		if err := core.ValidateSampleRate(sampleRate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.proc.SampleRate = sampleRate
		return nil
	}
}

// WithBlockSize sets the largest block rendered in one pass. Longer
// Render calls are split.
func WithBlockSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: block size must be > 0: %d", ErrInvalidConfig, n)
		}
		c.proc.BlockSize = n
		return nil
	}
}

// WithMonitorSize sets the monitor ring length in samples.
func WithMonitorSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: monitor size must be > 0: %d", ErrInvalidConfig, n)
		}
		c.monitor = n
		return nil
	}
}

// Engine renders the full graph. Publish, Monitor and the getters may be
// called from any goroutine; Render and RenderStereo must be called from
// one goroutine at a time.
type Engine struct {
	sampleRate float64
	blockSize  int

	stems  [control.NumStems]*stem.Chain
	reverb *reverb.Bus
	master *master.Bus

	pending atomic.Pointer[control.Coefficients]
	applied *control.Coefficients

	left, right []float64
	send        []float64
	wetIn       []float64
	wetOut      []float64
	mono        []float64

	monMu   sync.Mutex
	monitor []float64
	monPos  int

	frames atomic.Uint64
}

// New builds the graph for sources.
func New(sources [control.NumStems]Source, opts ...Option) (*Engine, error) {
	cfg := config{proc: core.DefaultProcessorConfig(), monitor: defaultMonitorSize}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	sr := cfg.proc.SampleRate
	e := &Engine{
		sampleRate: sr,
		blockSize:  cfg.proc.BlockSize,
		monitor:    make([]float64, cfg.monitor),
	}

	for i, src := range sources {
		ch, err := stem.New(src.Buffer, src.BasePan, src.Kind, sr)
		if err != nil {
			return nil, fmt.Errorf("engine: stem %d (%s): %w", i, src.Kind, err)
		}
		e.stems[i] = ch
	}

	var err error
	if e.reverb, err = reverb.New(sr); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if e.master, err = master.New(sr); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	n := e.blockSize
	e.left = make([]float64, n)
	e.right = make([]float64, n)
	e.send = make([]float64, n)
	e.wetIn = make([]float64, n)
	e.wetOut = make([]float64, n)
	e.mono = make([]float64, n)
	return e, nil
}

// SampleRate returns the render rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// BlockSize returns the internal block size.
func (e *Engine) BlockSize() int { return e.blockSize }

// Frames returns the number of stereo frames rendered so far.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// StemLen returns the loop length of stem i in samples.
func (e *Engine) StemLen(i int) int { return e.stems[i].Len() }

// Publish hands a new coefficient set to the render goroutine. It
// implements control.Sink and never blocks.
func (e *Engine) Publish(c control.Coefficients) {
	e.pending.Store(&c)
}

func (e *Engine) applyPending() {
	c := e.pending.Load()
	if c == nil || c == e.applied {
		return
	}
	e.applied = c
	e.reverb.Apply(c.Reverb)
	e.master.SetGain(c.Headroom)
	for i, ch := range e.stems {
		ch.Apply(c.Stems[i])
	}
}

// Render fills interleaved stereo float32 frames and returns the number
// of frames written. A trailing odd sample is left untouched.
func (e *Engine) Render(interleaved []float32) int {
	total := len(interleaved) / 2
	for done := 0; done < total; {
		n := min(e.blockSize, total-done)
		e.renderBlock(n)
		core.Interleave(interleaved[2*done:2*(done+n)], e.left[:n], e.right[:n])
		done += n
	}
	return total
}

// RenderStereo fills left and right up to the shorter length.
func (e *Engine) RenderStereo(left, right []float64) int {
	total := min(len(left), len(right))
	for done := 0; done < total; {
		n := min(e.blockSize, total-done)
		e.renderBlock(n)
		copy(left[done:done+n], e.left[:n])
		copy(right[done:done+n], e.right[:n])
		done += n
	}
	return total
}

func (e *Engine) renderBlock(n int) {
	e.applyPending()

	left, right := e.left[:n], e.right[:n]
	send, wetIn, wetOut := e.send[:n], e.wetIn[:n], e.wetOut[:n]
	core.Zero(left)
	core.Zero(right)
	core.Zero(wetIn)

	for _, ch := range e.stems {
		ch.Render(left, right, send)
		vecmath.AddBlockInPlace(wetIn, send)
	}

	e.reverb.Process(wetOut, wetIn)
	vecmath.AddBlockInPlace(left, wetOut)
	vecmath.AddBlockInPlace(right, wetOut)

	mono := e.mono[:n]
	e.master.Process(left, right, mono)
	e.writeMonitor(mono)
	e.frames.Add(uint64(n))
}

func (e *Engine) writeMonitor(src []float64) {
	e.monMu.Lock()
	defer e.monMu.Unlock()

	size := len(e.monitor)
	if len(src) >= size {
		copy(e.monitor, src[len(src)-size:])
		e.monPos = 0
		return
	}
	k := copy(e.monitor[e.monPos:], src)
	copy(e.monitor, src[k:])
	e.monPos = (e.monPos + len(src)) % size
}

// Monitor copies the most recent monitor samples into dst, oldest first,
// and returns how many were copied.
func (e *Engine) Monitor(dst []float64) int {
	e.monMu.Lock()
	defer e.monMu.Unlock()

	size := len(e.monitor)
	n := min(len(dst), size)
	start := (e.monPos - n + size) % size
	k := copy(dst[:n], e.monitor[start:])
	copy(dst[k:n], e.monitor)
	return n
}

// MonitorSize returns the ring length.
func (e *Engine) MonitorSize() int { return len(e.monitor) }

// Reset clears all processing state. Call it only while rendering is
// stopped.
func (e *Engine) Reset() {
	for _, ch := range e.stems {
		ch.Reset()
	}
	e.reverb.Reset()
	e.master.Reset()

	e.monMu.Lock()
	core.Zero(e.monitor)
	e.monPos = 0
	e.monMu.Unlock()
}

// Topology returns the combined graph: every stem, the reverb bus and the
// master bus, with the edges between them.
func (e *Engine) Topology() (*graph.Graph, error) {
	g := graph.New("room")
	for i, ch := range e.stems {
		if err := g.Merge(fmt.Sprintf("stem%d", i), ch.Topology()); err != nil {
			return nil, err
		}
	}
	if err := g.Merge("reverb", e.reverb.Topology()); err != nil {
		return nil, err
	}
	if err := g.Merge("master", e.master.Topology()); err != nil {
		return nil, err
	}
	if err := g.AddNode("reverb-return", graph.KindSplit, graph.Mono, graph.Stereo); err != nil {
		return nil, err
	}

	links := [][2]string{
		{"reverb/out", "reverb-return"},
		{"reverb-return", "master/in"},
	}
	for i := range e.stems {
		p := fmt.Sprintf("stem%d/", i)
		links = append(links,
			[2]string{p + "out", "master/in"},
			[2]string{p + "reverb-send", "reverb/in"},
		)
	}
	for _, l := range links {
		if err := g.Connect(l[0], l[1]); err != nil {
			return nil, err
		}
	}
	return g, g.Validate()
}
