// Command installation runs the interactive room: two looping stems, a
// feedback-delay reverb and the pointer-driven parameter field, in a
// window with live audio output.
//
// Usage:
//
//	installation -drums drums.wav -melody melody.mp3 [flags]
//
// Controls: drag the cube vertically to change the room size, drag
// anywhere else to move through the field. F11 toggles fullscreen, F1 the
// debug overlay, Esc quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/cwbudde/algo-room/internal/asset"
	"github.com/cwbudde/algo-room/room/session"
)

func main() {
	drums := flag.String("drums", "", "percussive stem (wav or mp3)")
	melody := flag.String("melody", "", "melodic stem (wav or mp3)")
	rate := flag.Int("rate", 48000, "output sample rate in Hz")
	block := flag.Int("block", 256, "render block size in frames")
	buffer := flag.Duration("buffer", 40*time.Millisecond, "audio device buffer")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	debug := flag.Bool("debug", false, "debug logging and overlay")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: installation -drums FILE -melody FILE [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: *debug}))
	slog.SetDefault(log)

	if *drums == "" || *melody == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(log, *drums, *melody, *rate, *block, *buffer, *width, *height, *debug); err != nil {
		var le *asset.LoadError
		if errors.As(err, &le) {
			log.Error("asset load failed", slog.String("path", le.Path), slog.String("op", le.Op), slog.Any("err", le.Err))
		} else {
			log.Error("installation stopped", slog.Any("err", err))
		}
		os.Exit(1)
	}
}

func run(log *slog.Logger, drumsPath, melodyPath string, rate, block int, buffer time.Duration, width, height int, debug bool) error {
	loader, err := asset.NewLoader(rate, asset.WithLogger(log))
	if err != nil {
		return err
	}
	drums, err := loader.Load(drumsPath)
	if err != nil {
		return err
	}
	melody, err := loader.Load(melodyPath)
	if err != nil {
		return err
	}

	s, err := session.New(drums.Samples, melody.Samples,
		session.WithSampleRate(float64(rate)),
		session.WithBlockSize(block),
		session.WithViewport(float64(width), float64(height)),
		session.WithLogger(log),
	)
	if err != nil {
		return err
	}

	out, err := newOutput(s, rate, block, buffer)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn("closing audio output", slog.Any("err", err))
		}
	}()

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("room")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetRunnableOnUnfocused(true)

	g := &game{s: s, width: width, height: height, debug: debug}
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	log.Info("installation stopped", slog.Uint64("frames", s.Frames()))
	return nil
}
