package mapper

import (
	"math"

	"github.com/cwbudde/algo-room/dsp/core"
	"github.com/cwbudde/algo-room/room/params"
)

const baseMotion = 0.12

// Field is the parameter subset that a position on the field determines.
type Field struct {
	Distance float64
	Width    float64
	Focus    float64
	Motion   float64
	X, Y     float64
}

// FieldAt maps a normalised position to field parameters. Up (ny = 1) is
// far, the horizontal extremes are wide and the left edge has the lowest
// focus frequency.
func FieldAt(nx, ny float64) Field {
	nx = core.ClampBipolar(nx)
	ny = core.ClampBipolar(ny)
	distance := core.Clamp01((ny + 1) / 2)
	return Field{
		Distance: distance,
		Width:    core.Clamp01(math.Abs(nx)),
		Focus:    core.Clamp01((nx + 1) / 2),
		Motion:   core.Clamp01(baseMotion + (1-distance)*(1-baseMotion)),
		X:        nx,
		Y:        ny,
	}
}

// Normalize converts viewport pixels to [-1, 1] with y pointing up.
func Normalize(x, y, width, height float64) (nx, ny float64) {
	return core.ClampBipolar(2*x/width - 1), core.ClampBipolar(1 - 2*y/height)
}

func (f Field) applyTo(p *params.Canonical) {
	p.SetDistance(f.Distance)
	p.SetWidth(f.Width)
	p.SetFocus(f.Focus)
	p.SetMotion(f.Motion)
	p.SetPosition(f.X, f.Y)
}

// SpaceDragDivisor is the pixel distance that changes space by 1.0.
func SpaceDragDivisor(height float64) float64 {
	return math.Max(240, 0.45*height)
}
