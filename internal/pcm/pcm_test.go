package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampRenderer struct{ calls int }

func (r *rampRenderer) Render(interleaved []float32) int {
	r.calls++
	for i := range interleaved {
		interleaved[i] = float32(i) * 0.25
	}
	return len(interleaved) / 2
}

func TestReadEncodesLittleEndianFloats(t *testing.T) {
	src := &rampRenderer{}
	r := NewReader(src, 4)

	p := make([]byte, 8*3+5)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 24 {
		t.Fatalf("Read() = %d, want 24", n)
	}
	for i := range 6 {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if want := float32(i) * 0.25; got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}
}

func TestReadShortBuffer(t *testing.T) {
	src := &rampRenderer{}
	r := NewReader(src, 0)
	if n, err := r.Read(make([]byte, 7)); n != 0 || err != nil {
		t.Fatalf("Read() = %d, %v, want 0, nil", n, err)
	}
	if src.calls != 0 {
		t.Fatalf("Render calls = %d, want 0", src.calls)
	}
}

func TestReadGrowsScratch(t *testing.T) {
	r := NewReader(&rampRenderer{}, 1)
	if n, _ := r.Read(make([]byte, 8*512)); n != 8*512 {
		t.Fatalf("Read() = %d, want %d", n, 8*512)
	}
	p := make([]byte, 8*256)
	if allocs := testing.AllocsPerRun(50, func() { _, _ = r.Read(p) }); allocs != 0 {
		t.Fatalf("allocs = %v, want 0", allocs)
	}
}
