package main

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-room/internal/pcm"
)

// output plays a session through the default audio device.
type output struct {
	ctx    *oto.Context
	player *oto.Player
}

func newOutput(src pcm.Renderer, sampleRate, blockSize int, buffer time.Duration) (*output, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: pcm.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(pcm.NewReader(src, blockSize))
	player.Play()
	return &output{ctx: ctx, player: player}, nil
}

func (o *output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	return nil
}
