// Command roomgraph prints the coefficient tables and the processing graph
// of the room.
//
// Usage:
//
//	roomgraph [flags]
//
// Without flags it prints the reverb bus over the space control followed
// by both stem chains over the distance axis.
//
// Examples:
//
//	roomgraph
//	roomgraph -steps 21 -rate 44100
//	roomgraph -topology > graph.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-room/room/control"
	"github.com/cwbudde/algo-room/room/engine"
	"github.com/cwbudde/algo-room/room/feature"
	"github.com/cwbudde/algo-room/room/mapper"
	"github.com/cwbudde/algo-room/room/params"
)

func main() {
	steps := flag.Int("steps", 11, "number of points per table (>= 2)")
	rate := flag.Float64("rate", 48000, "sample rate for sample-count columns")
	topology := flag.Bool("topology", false, "print the processing graph as JSON instead of tables")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: roomgraph [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints coefficient tables and the processing graph.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  roomgraph -steps 21\n")
		fmt.Fprintf(os.Stderr, "  roomgraph -topology\n")
	}
	flag.Parse()

	if *topology {
		if err := printTopology(os.Stdout, *rate); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *steps < 2 || !(*rate > 0) {
		fmt.Fprintf(os.Stderr, "error: need -steps >= 2 and -rate > 0\n")
		os.Exit(2)
	}

	if err := printSpace(os.Stdout, *steps, *rate); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()
	if err := printField(os.Stdout, *steps, *rate); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// fraction returns the i-th of n evenly spaced points in [0, 1].
func fraction(i, n int) float64 { return float64(i) / float64(n-1) }

func printSpace(w io.Writer, steps int, rate float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Space\tWet\tPre-delay [ms]\tPre-delay [smp]\tLowpass [Hz]\tHighpass [Hz]\tFeedback\tHeadroom\n")
	fmt.Fprintf(tw, "-----\t---\t--------------\t---------------\t------------\t-------------\t--------\t--------\n")

	p := params.Default()
	for i := range steps {
		p.SetSpace(fraction(i, steps))
		c := control.Compute(p, feature.Snapshot{}, control.DefaultStems())
		r := c.Reverb
		if _, err := fmt.Fprintf(tw, "%.3f\t%.4f\t%.1f\t%.0f\t%.0f\t%.0f\t%.4f\t%.4f\n",
			p.Space(), r.Wet, r.PreDelay*1000, r.PreDelay*rate, r.LowpassHz, r.HighpassHz, r.Feedback, c.Headroom,
		); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return tw.Flush()
}

// printField walks the field's vertical axis at the horizontal centre.
func printField(w io.Writer, steps int, rate float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Stem\tDistance\tDry\tSend\tLowpass [Hz]\tFocus [Hz]\tFocus [dB]\tPan\tSide [ms]\tSide [smp]\tLFO [Hz]\tDepth\n")
	fmt.Fprintf(tw, "----\t--------\t---\t----\t------------\t----------\t----------\t---\t---------\t----------\t--------\t-----\n")

	layout := control.DefaultStems()
	p := params.Default()
	for slot, st := range layout {
		for i := range steps {
			ny := 2*fraction(i, steps) - 1
			f := mapper.FieldAt(0, ny)
			p.SetDistance(f.Distance)
			p.SetWidth(f.Width)
			p.SetFocus(f.Focus)
			p.SetMotion(f.Motion)

			sc := control.Compute(p, feature.Snapshot{}, layout).Stems[slot]
			if _, err := fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.4f\t%.0f\t%.0f\t%.1f\t%+.3f\t%.2f\t%.0f\t%.3f\t%.3f\n",
				st.Kind, p.Distance(), sc.Dry, sc.Send, sc.LowpassHz, sc.FocusHz, sc.FocusGainDB,
				sc.Pan, sc.SideDelay*1000, sc.SideDelay*rate, sc.LFORate, sc.LFODepth,
			); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	return tw.Flush()
}

func printTopology(w io.Writer, rate float64) error {
	// One second of silence per stem; the graph does not depend on the
	// material.
	n := max(int(rate), 1)
	var sources [control.NumStems]engine.Source
	for i, st := range control.DefaultStems() {
		sources[i] = engine.Source{Buffer: make([]float64, n), Kind: st.Kind, BasePan: st.BasePan}
	}
	e, err := engine.New(sources, engine.WithSampleRate(rate))
	if err != nil {
		return err
	}
	g, err := e.Topology()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}
