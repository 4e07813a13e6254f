package reverb_test

import (
	"fmt"

	"github.com/cwbudde/algo-room/room/reverb"
)

func ExampleSize() {
	c := reverb.Size(0.5)
	fmt.Printf("wet=%.3f predelay=%.0fms lowpass=%.0fHz highpass=%.0fHz feedback=%.3f\n",
		c.Wet, c.PreDelay*1000, c.LowpassHz, c.HighpassHz, c.Feedback)

	// Output:
	// wet=0.525 predelay=100ms lowpass=5700Hz highpass=240Hz feedback=0.560
}
