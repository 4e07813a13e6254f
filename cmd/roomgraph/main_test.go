package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestPrintSpaceRows(t *testing.T) {
	var buf bytes.Buffer
	if err := printSpace(&buf, 5, 48000); err != nil {
		t.Fatalf("printSpace() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2+5 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "0.000") || !strings.HasPrefix(lines[6], "1.000") {
		t.Fatalf("space column = %q .. %q", lines[2], lines[6])
	}
}

func TestPrintFieldCoversBothStems(t *testing.T) {
	var buf bytes.Buffer
	if err := printField(&buf, 3, 48000); err != nil {
		t.Fatalf("printField() error = %v", err)
	}
	out := buf.String()
	if strings.Count(out, "percussive") != 3 || strings.Count(out, "melodic") != 3 {
		t.Fatalf("unexpected rows:\n%s", out)
	}
}

func TestPrintTopologyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printTopology(&buf, 48000); err != nil {
		t.Fatalf("printTopology() error = %v", err)
	}
	var g struct {
		Name  string `json:"name"`
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Edges []struct {
			Feedback bool `json:"feedback"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(buf.Bytes(), &g); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		t.Fatalf("graph = %+v", g)
	}
	feedback := 0
	for _, e := range g.Edges {
		if e.Feedback {
			feedback++
		}
	}
	if feedback != 4 {
		t.Fatalf("feedback edges = %d, want 4", feedback)
	}
}
