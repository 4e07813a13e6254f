package delay

import (
	"math"
	"testing"
)

func TestLineIntegerRead(t *testing.T) {
	d, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 1; i <= 5; i++ {
		d.Write(float64(i))
	}
	tests := []struct {
		delay int
		want  float64
	}{
		{0, 5}, {1, 4}, {4, 1}, {5, 0}, {-3, 5},
	}
	for _, tt := range tests {
		if got := d.Read(tt.delay); got != tt.want {
			t.Fatalf("Read(%d) = %v, want %v", tt.delay, got, tt.want)
		}
	}
}

func TestLineWraps(t *testing.T) {
	d, _ := New(4)
	for i := 1; i <= 10; i++ {
		d.Write(float64(i))
	}
	if got := d.Read(0); got != 10 {
		t.Fatalf("Read(0) = %v, want 10", got)
	}
	if got := d.Read(3); got != 7 {
		t.Fatalf("Read(3) = %v, want 7", got)
	}
}

func TestLineFractionalOnRamp(t *testing.T) {
	d, _ := New(32)
	for i := 0; i < 32; i++ {
		d.Write(float64(i))
	}
	// Hermite interpolation is exact on a linear ramp.
	got := d.ReadFractional(3.25)
	want := 31 - 3.25
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("ReadFractional(3.25) = %v, want %v", got, want)
	}
	if got := d.ReadFractional(2); got != 29 {
		t.Fatalf("ReadFractional(2) = %v, want 29", got)
	}
}

func TestLineFractionalClamps(t *testing.T) {
	d, _ := New(8)
	for i := 0; i < 8; i++ {
		d.Write(float64(i))
	}
	if got, want := d.ReadFractional(100), d.Read(5); got != want {
		t.Fatalf("ReadFractional(100) = %v, want %v", got, want)
	}
	if got := d.ReadFractional(math.NaN()); got != 7 {
		t.Fatalf("ReadFractional(NaN) = %v, want 7", got)
	}
}

func TestNewSecondsValidation(t *testing.T) {
	d, err := NewSeconds(0.04, 48000)
	if err != nil {
		t.Fatalf("NewSeconds() error = %v", err)
	}
	if d.MaxDelay() < 0.04*48000 {
		t.Fatalf("MaxDelay() = %v, want >= %v", d.MaxDelay(), 0.04*48000)
	}
	if _, err := NewSeconds(0, 48000); err == nil {
		t.Fatal("expected error for zero time")
	}
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestLineReset(t *testing.T) {
	d, _ := New(4)
	d.Write(1)
	d.Reset()
	for i := 0; i < 4; i++ {
		if d.Read(i) != 0 {
			t.Fatalf("Read(%d) after Reset = %v, want 0", i, d.Read(i))
		}
	}
}
