// Package pcm adapts a float32 stereo renderer to the byte stream an audio
// device pulls from.
package pcm

import (
	"encoding/binary"
	"math"
)

// Channels is the fixed channel count of every stream.
const Channels = 2

const bytesPerFrame = Channels * 4

// Renderer fills interleaved stereo frames and returns the frame count.
type Renderer interface {
	Render(interleaved []float32) int
}

// Reader is an io.Reader producing float32 little-endian interleaved
// stereo. It never returns an error and never blocks. Reads shorter than
// one frame return zero bytes.
type Reader struct {
	src Renderer
	buf []float32
}

// NewReader returns a Reader pulling from src. frames presizes the
// scratch buffer; larger reads grow it once.
func NewReader(src Renderer, frames int) *Reader {
	return &Reader{src: src, buf: make([]float32, max(frames, 0)*Channels)}
}

// Read renders len(p)/8 frames into p.
func (r *Reader) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if n := frames * Channels; cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	buf := r.buf[:frames*Channels]
	frames = r.src.Render(buf)

	n := frames * Channels
	for i, v := range buf[:n] {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
