package modulation

import (
	"math"
	"testing"
)

func TestLFOPeriod(t *testing.T) {
	l, err := NewLFO(1000, 10)
	if err != nil {
		t.Fatalf("NewLFO() error = %v", err)
	}
	got := make([]float64, 100)
	for i := range got {
		got[i] = l.Next()
	}
	for i := 0; i < 100; i++ {
		want := math.Sin(2 * math.Pi * 10 * float64(i) / 1000)
		if math.Abs(got[i]-want) > 1e-9 {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want)
		}
	}
}

func TestLFORateChangeKeepsPhase(t *testing.T) {
	l, _ := NewLFO(1000, 1)
	for i := 0; i < 250; i++ {
		l.Next()
	}
	before := l.Phase()
	l.SetRate(5)
	if l.Phase() != before {
		t.Fatalf("SetRate() moved phase %v -> %v", before, l.Phase())
	}
}

func TestLFOInvalidRateStops(t *testing.T) {
	l, _ := NewLFO(1000, math.NaN())
	for i := 0; i < 10; i++ {
		if v := l.Next(); v != 0 {
			t.Fatalf("stopped LFO produced %v", v)
		}
	}
	if _, err := NewLFO(0, 1); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
