package mapper_test

import (
	"fmt"

	"github.com/cwbudde/algo-room/room/mapper"
)

func ExampleFieldAt() {
	nx, ny := mapper.Normalize(960, 540, 1280, 720)
	f := mapper.FieldAt(nx, ny)
	fmt.Printf("distance=%.2f width=%.2f focus=%.2f motion=%.2f\n", f.Distance, f.Width, f.Focus, f.Motion)

	// Output:
	// distance=0.25 width=0.50 focus=0.75 motion=0.78
}
