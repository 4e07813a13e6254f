package main

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/cwbudde/algo-room/room/mapper"
	"github.com/cwbudde/algo-room/room/session"
)

var (
	backgroundColor = color.RGBA{10, 12, 18, 255}
	cubeColor       = color.RGBA{90, 140, 220, 90}
	cubeEdgeColor   = color.RGBA{150, 190, 255, 255}
	activeEdgeColor = color.RGBA{255, 210, 120, 255}
	markerColor     = color.RGBA{240, 240, 240, 220}
	bandColor       = color.RGBA{120, 200, 160, 200}
)

// game drives the session from ebiten's update loop. Pointer events and
// Frame run on the same goroutine; the audio player calls Render
// elsewhere.
type game struct {
	s      *session.Session
	width  int
	height int
	debug  bool
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.debug = !g.debug
	}

	x, y := ebiten.CursorPosition()
	fx, fy := float64(x), float64(y)
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.s.PointerDown(fx, fy)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.s.PointerUp()
	default:
		g.s.PointerMove(fx, fy, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	}

	g.s.Frame()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	p := g.s.Params().Snapshot()
	w, h := float32(g.width), float32(g.height)

	// Feature bars along the bottom edge.
	f := g.s.Features()
	barW := w / 8
	for i, v := range []float64{f.Bass, f.Mid, f.High, f.RMS} {
		bh := float32(v) * h * 0.2
		vector.DrawFilledRect(screen, float32(i)*barW+barW*0.1, h-bh, barW*0.8, bh, bandColor, false)
	}

	// Field position.
	mx := float32((p.X + 1) / 2) * w
	my := float32((1 - p.Y) / 2) * h
	vector.StrokeLine(screen, mx-8, my, mx+8, my, 1, markerColor, true)
	vector.StrokeLine(screen, mx, my-8, mx, my+8, 1, markerColor, true)

	c := g.s.Cube()
	cx, cy, r := float32(c.CenterX), float32(c.CenterY), float32(c.Radius)
	edge := cubeEdgeColor
	if _, ok := g.s.State().(mapper.DraggingSpaceControl); ok {
		edge = activeEdgeColor
	}
	vector.DrawFilledRect(screen, cx-r, cy-r, 2*r, 2*r, cubeColor, true)
	vector.StrokeRect(screen, cx-r, cy-r, 2*r, 2*r, 2, edge, true)
	vector.StrokeCircle(screen, cx, cy, r, 1, edge, true)

	if !g.debug {
		return
	}
	co := g.s.Coefficients()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"FPS %.1f  state=%s  autopilot=%t\n%s\nbass=%.2f mid=%.2f high=%.2f rms=%.2f\nwet=%.2f feedback=%.3f headroom=%.3f",
		ebiten.ActualFPS(), g.s.State(), g.s.Autopiloting(),
		g.s.Params(),
		f.Bass, f.Mid, f.High, f.RMS,
		co.Reverb.Wet, co.Reverb.Feedback, co.Headroom,
	))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.s.SetViewport(float64(outsideWidth), float64(outsideHeight))
	}
	return outsideWidth, outsideHeight
}
