// Package asset loads the installation's stems from disk or memory,
// downmixes them to mono and converts them to the render rate.
package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/cwbudde/algo-room/dsp/core"
)

var (
	// ErrAssetLoad is matched by every error returned from this package.
	ErrAssetLoad = errors.New("asset: load failed")
	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmpty is returned when a file decodes to no audio.
	ErrEmpty = errors.New("no audio frames")
)

// LoadError records which file and step failed.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("asset: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrAssetLoad and the underlying cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrAssetLoad, e.Err}
}

// Format is a container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// FormatOf picks the format from a file name's extension.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Clip is a decoded mono buffer at the loader's sample rate.
type Clip struct {
	Name             string
	Samples          []float64
	SampleRate       int
	SourceRate       int
	SourceChannels   int
	SourceBitDepth   int
	SourceFrameCount int
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// Loader decodes stems for one target sample rate.
type Loader struct {
	sampleRate int
	log        *slog.Logger
}

// NewLoader returns a loader that converts everything to sampleRate.
func NewLoader(sampleRate int, opts ...Option) (*Loader, error) {
	if sampleRate <= 0 {
		return nil, &LoadError{Op: "configure", Err: fmt.Errorf("sample rate must be > 0: %d", sampleRate)}
	}
	l := &Loader{sampleRate: sampleRate, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// SampleRate returns the target rate.
func (l *Loader) SampleRate() int { return l.sampleRate }

// Load reads and decodes the file at path.
func (l *Loader) Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()
	return l.Decode(path, f)
}

// DecodeBytes decodes an in-memory file. name selects the format.
func (l *Loader) DecodeBytes(name string, data []byte) (*Clip, error) {
	return l.Decode(name, bytes.NewReader(data))
}

// Decode decodes r. name selects the format and labels errors.
func (l *Loader) Decode(name string, r io.ReadSeeker) (*Clip, error) {
	start := time.Now()

	var (
		pcm []float64
		src sourceInfo
		err error
	)
	switch format := FormatOf(name); format {
	case FormatWAV:
		pcm, src, err = decodeWAV(r)
	case FormatMP3:
		pcm, src, err = decodeMP3(r)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, &LoadError{Path: name, Op: "decode", Err: err}
	}

	mono := core.Downmix(pcm, src.channels)
	if len(mono) == 0 {
		return nil, &LoadError{Path: name, Op: "decode", Err: ErrEmpty}
	}
	l.log.Debug("decoded stem",
		"path", name,
		"sampleRate", src.rate,
		"nchannels", src.channels,
		"bitDepth", src.bitDepth,
		"nframes", len(mono),
		"seconds", time.Since(start).Seconds(),
	)

	if src.rate != l.sampleRate {
		start = time.Now()
		mono, err = convertRate(mono, src.rate, l.sampleRate)
		if err != nil {
			return nil, &LoadError{Path: name, Op: "resample", Err: err}
		}
		l.log.Debug("resampled stem", "path", name, "from", src.rate, "to", l.sampleRate, "seconds", time.Since(start).Seconds())
	}

	return &Clip{
		Name:             name,
		Samples:          mono,
		SampleRate:       l.sampleRate,
		SourceRate:       src.rate,
		SourceChannels:   src.channels,
		SourceBitDepth:   src.bitDepth,
		SourceFrameCount: len(pcm) / max(1, src.channels),
	}, nil
}

type sourceInfo struct {
	rate     int
	channels int
	bitDepth int
}

func decodeWAV(r io.ReadSeeker) ([]float64, sourceInfo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, sourceInfo{}, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, sourceInfo{}, err
	}

	format := dec.Format()
	bitDepth := int(dec.SampleBitDepth())
	if bitDepth == 0 || format == nil || format.NumChannels <= 0 {
		return nil, sourceInfo{}, errors.New("unknown WAV sample format")
	}

	bytesPerSample := (bitDepth-1)/8 + 1
	nsamples := int(dec.PCMLen()) / bytesPerSample
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, nsamples),
		SourceBitDepth: bitDepth,
	}
	n, err := dec.PCMBuffer(buf)
	if err != nil {
		return nil, sourceInfo{}, err
	}
	buf.Data = buf.Data[:n]

	floatBuf := buf.AsFloatBuffer()
	scale := 1 / math.Pow(2, float64(bitDepth-1))
	out := make([]float64, len(floatBuf.Data))
	for i, v := range floatBuf.Data {
		out[i] = v * scale
	}
	return out, sourceInfo{rate: format.SampleRate, channels: format.NumChannels, bitDepth: bitDepth}, nil
}

func decodeMP3(r io.Reader) ([]float64, sourceInfo, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, sourceInfo{}, err
	}

	// The decoder always yields 16-bit little-endian stereo.
	const channels = 2
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, sourceInfo{}, err
	}
	out := make([]float64, len(raw)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return out, sourceInfo{rate: dec.SampleRate(), channels: channels, bitDepth: 16}, nil
}
