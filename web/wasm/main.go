//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/cwbudde/algo-room/internal/asset"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/mapper"
	"github.com/cwbudde/algo-room/room/params"
	"github.com/cwbudde/algo-room/room/session"
)

var (
	room   *session.Session
	funcs  []js.Func
	render []float32
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	api := js.Global().Get("Object").New()

	// init(sampleRate, drumsName, drumsBytes, melodyName, melodyBytes, width, height)
	// takes the stems as Uint8Array file contents.
	api.Set("init", export(func(args []js.Value) any {
		if len(args) < 7 {
			return "init: expected 7 arguments"
		}
		sr := args[0].Int()
		loader, err := asset.NewLoader(sr, asset.WithLogger(log))
		if err != nil {
			return err.Error()
		}
		drums, err := loader.DecodeBytes(args[1].String(), bytesOf(args[2]))
		if err != nil {
			return err.Error()
		}
		melody, err := loader.DecodeBytes(args[3].String(), bytesOf(args[4]))
		if err != nil {
			return err.Error()
		}
		s, err := session.New(drums.Samples, melody.Samples,
			session.WithSampleRate(float64(sr)),
			session.WithViewport(args[5].Float(), args[6].Float()),
			session.WithLogger(log),
		)
		if err != nil {
			return err.Error()
		}
		room = s
		return js.Null()
	}))

	api.Set("pointerDown", export(func(args []js.Value) any {
		if room == nil || len(args) < 2 {
			return js.Null()
		}
		room.PointerDown(args[0].Float(), args[1].Float())
		return js.Null()
	}))

	api.Set("pointerMove", export(func(args []js.Value) any {
		if room == nil || len(args) < 3 {
			return js.Null()
		}
		room.PointerMove(args[0].Float(), args[1].Float(), args[2].Bool())
		return js.Null()
	}))

	api.Set("pointerUp", export(func(args []js.Value) any {
		if room != nil {
			room.PointerUp()
		}
		return js.Null()
	}))

	api.Set("resize", export(func(args []js.Value) any {
		if room == nil || len(args) < 2 {
			return js.Null()
		}
		room.SetViewport(args[0].Float(), args[1].Float())
		return js.Null()
	}))

	// frame() runs one UI frame and returns the view state as JSON.
	api.Set("frame", export(func(args []js.Value) any {
		if room == nil {
			return js.Null()
		}
		room.Frame()
		return viewJSON()
	}))

	// render(frames) returns interleaved stereo samples.
	api.Set("render", export(func(args []js.Value) any {
		if room == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		n := 2 * args[0].Int()
		if cap(render) < n {
			render = make([]float32, n)
		}
		buf := render[:n]
		room.Render(buf)
		arr := js.Global().Get("Float32Array").New(n)
		for i, v := range buf {
			arr.SetIndex(i, v)
		}
		return arr
	}))

	api.Set("topology", export(func(args []js.Value) any {
		if room == nil {
			return js.Null()
		}
		g, err := room.Topology()
		if err != nil {
			return err.Error()
		}
		b, err := json.Marshal(g)
		if err != nil {
			return err.Error()
		}
		return string(b)
	}))

	js.Global().Set("AlgoRoom", api)
	select {}
}

type view struct {
	Params    params.Snapshot  `json:"params"`
	Features  feature.Snapshot `json:"features"`
	Cube      mapper.Cube      `json:"cube"`
	State     string           `json:"state"`
	Autopilot bool             `json:"autopilot"`
	Wet       float64          `json:"wet"`
}

func viewJSON() string {
	b, err := json.Marshal(view{
		Params:    room.Params().Snapshot(),
		Features:  room.Features(),
		Cube:      room.Cube(),
		State:     room.State().String(),
		Autopilot: room.Autopiloting(),
		Wet:       room.Coefficients().Reverb.Wet,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func bytesOf(v js.Value) []byte {
	b := make([]byte, v.Get("byteLength").Int())
	js.CopyBytesToGo(b, v)
	return b
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
