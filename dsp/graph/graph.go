// Package graph describes the static topology of a processing network:
// nodes with typed ports, forward connections and explicit feedback edges.
//
// The processors in this module are hand-wired for speed; each one also
// reports its wiring as a Graph so the structure can be validated,
// ordered, printed and serialised independently of the audio code.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names what a node does.
type Kind string

const (
	KindSource     Kind = "source"
	KindGain       Kind = "gain"
	KindDelay      Kind = "delay"
	KindFilter     Kind = "filter"
	KindPan        Kind = "pan"
	KindOscillator Kind = "oscillator"
	KindDynamics   Kind = "dynamics"
	KindSum        Kind = "sum"
	KindSplit      Kind = "split"
	KindTap        Kind = "tap"
	KindOutput     Kind = "output"
)

// PortType is the signal type carried between two nodes.
type PortType int

const (
	Mono PortType = iota
	Stereo
	Control
)

// String returns the port name.
func (p PortType) String() string {
	switch p {
	case Mono:
		return "mono"
	case Stereo:
		return "stereo"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("port(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PortType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

var (
	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("graph: duplicate node")
	// ErrUnknownNode is returned when an edge references a missing node.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrPortMismatch is returned when an edge joins incompatible ports.
	ErrPortMismatch = errors.New("graph: port type mismatch")
	// ErrFeedbackTarget is returned when a feedback edge does not end in a
	// delay node.
	ErrFeedbackTarget = errors.New("graph: feedback edge must target a delay node")
	// ErrCycle is returned when the forward edges contain a cycle.
	ErrCycle = errors.New("graph: forward edges contain a cycle")
)

// Node is one processing stage.
type Node struct {
	ID   string   `json:"id"`
	Kind Kind     `json:"kind"`
	In   PortType `json:"in"`
	Out  PortType `json:"out"`
}

// Edge connects the output of From to the input of To. Feedback edges
// close a loop and are excluded from the processing order; the delay node
// they terminate in supplies the one-block latency that makes the loop
// computable.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Port     PortType `json:"port"`
	Feedback bool     `json:"feedback,omitempty"`
}

// Graph is a named set of nodes and edges. The zero value is not usable;
// call New.
type Graph struct {
	name  string
	nodes []Node
	index map[string]int
	edges []Edge
}

// New returns an empty graph.
func New(name string) *Graph {
	return &Graph{name: name, index: map[string]int{}}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// AddNode adds a node.
func (g *Graph) AddNode(id string, kind Kind, in, out PortType) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownNode)
	}
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Kind: kind, In: in, Out: out})
	return nil
}

// Connect adds a forward edge.
func (g *Graph) Connect(from, to string) error {
	return g.addEdge(from, to, false)
}

// Feedback adds a feedback edge. The target must be a delay node.
func (g *Graph) Feedback(from, to string) error {
	return g.addEdge(from, to, true)
}

func (g *Graph) addEdge(from, to string, feedback bool) error {
	fi, ok := g.index[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	ti, ok := g.index[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}

	src, dst := g.nodes[fi], g.nodes[ti]
	// Control outputs modulate a parameter of the target, so they may feed
	// any node.
	if src.Out != Control && src.Out != dst.In {
		return fmt.Errorf("%w: %s(%s) -> %s(%s)", ErrPortMismatch, from, src.Out, to, dst.In)
	}
	if feedback && dst.Kind != KindDelay {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrFeedbackTarget, from, to, dst.Kind)
	}

	g.edges = append(g.edges, Edge{From: from, To: to, Port: src.Out, Feedback: feedback})
	return nil
}

// Nodes returns a copy of the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// FeedbackEdges returns only the feedback edges.
func (g *Graph) FeedbackEdges() []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Feedback {
			out = append(out, e)
		}
	}
	return out
}

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Order returns a topological order of the forward edges using Kahn's
// algorithm. Ties resolve in insertion order so the result is stable.
func (g *Graph) Order() ([]string, error) {
	indegree := make([]int, len(g.nodes))
	outgoing := make([][]int, len(g.nodes))
	for _, e := range g.edges {
		if e.Feedback {
			continue
		}
		from, to := g.index[e.From], g.index[e.To]
		outgoing[from] = append(outgoing[from], to)
		indegree[to]++
	}

	queue := make([]int, 0, len(g.nodes))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		order = append(order, g.nodes[i].ID)
		for _, to := range outgoing[i] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("%w in %q", ErrCycle, g.name)
	}

	return order, nil
}

// Validate checks that the graph can be scheduled.
func (g *Graph) Validate() error {
	_, err := g.Order()
	return err
}

// Merge copies all nodes and edges of other into g with IDs prefixed by
// prefix + "/".
func (g *Graph) Merge(prefix string, other *Graph) error {
	id := func(s string) string { return prefix + "/" + s }
	for _, n := range other.nodes {
		if err := g.AddNode(id(n.ID), n.Kind, n.In, n.Out); err != nil {
			return err
		}
	}
	for _, e := range other.edges {
		g.edges = append(g.edges, Edge{From: id(e.From), To: id(e.To), Port: e.Port, Feedback: e.Feedback})
	}
	return nil
}

type graphState struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// MarshalJSON implements json.Marshaler.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphState{Name: g.name, Nodes: g.nodes, Edges: g.edges})
}
