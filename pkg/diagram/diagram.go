package diagram

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/connect"
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/layout"
	"github.com/matzehuels/lanemap/pkg/process"
)

// FormatVersion is bumped whenever the serialized shape changes
// incompatibly.
const FormatVersion = 1

// Node sizes used by renderers. Positions are the top-left corner of the
// node's box.
const (
	TaskWidth    = 160.0
	TaskHeight   = 60.0
	DecisionSize = 100.0
)

// Diagram is a fully laid out process map.
type Diagram struct {
	Version  int              `json:"version"`
	Workflow process.Workflow `json:"workflow"`
	Geometry grid.Geometry    `json:"geometry"`
	Width    float64          `json:"width"`
	Height   float64          `json:"height"`
	Columns  int              `json:"columns"`

	Lanes    []layout.Lane    `json:"lanes"`
	Dividers []layout.Divider `json:"dividers"`
	Nodes    []Node           `json:"nodes"`
	Edges    []Edge           `json:"edges"`
	Unplaced []Unplaced       `json:"unplaced,omitempty"`
	Dropped  []connect.Drop   `json:"dropped,omitempty"`
}

// Node is a placed step.
type Node struct {
	StepID  int64        `json:"stepId"`
	Name    string       `json:"name,omitempty"`
	Kind    process.Kind `json:"kind"`
	Status  string       `json:"status,omitempty"`
	Address string       `json:"address"`
	Row     int          `json:"row"`
	Col     int          `json:"col"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
}

// IsDecision reports whether the node is drawn as a diamond.
func (n Node) IsDecision() bool { return n.Kind == process.KindDecision }

// Size returns the width and height of the node's shape.
func (n Node) Size() (w, h float64) {
	if n.IsDecision() {
		return DecisionSize, DecisionSize
	}
	return TaskWidth, TaskHeight
}

// Label returns the display name of the node.
func (n Node) Label() string {
	if n.Name == "" {
		return "Unnamed"
	}
	return n.Name
}

// Edge is a resolved connection with the handle it leaves its source from.
type Edge struct {
	connect.Edge
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// Unplaced is a step listed beside the map rather than on it.
type Unplaced struct {
	StepID  int64        `json:"stepId"`
	Name    string       `json:"name,omitempty"`
	Kind    process.Kind `json:"kind"`
	Address string       `json:"address,omitempty"` // unparseable value, if any
}

// Options configures Build.
type Options struct {
	Geometry grid.Geometry
	Layout   layout.Config
	Logger   *log.Logger
}

// Build lays out a snapshot. It never fails: unparseable addresses end up
// in Unplaced and unresolvable connections in Dropped.
func Build(snap process.Snapshot, opts Options) *Diagram {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	proj := layout.New(opts.Geometry, opts.Layout, logger)
	placed := proj.Project(snap.Steps, snap.Rows)
	resolved := connect.New(logger).Resolve(snap.Steps)

	steps := make(map[int64]process.Step, len(snap.Steps))
	for _, st := range snap.Steps {
		if _, dup := steps[st.ID]; !dup {
			steps[st.ID] = st
		}
	}

	d := &Diagram{
		Version:  FormatVersion,
		Workflow: snap.Workflow,
		Geometry: proj.Geometry(),
		Width:    placed.Width,
		Height:   placed.Height,
		Columns:  placed.Columns,
		Lanes:    placed.Lanes,
		Dividers: placed.Dividers,
		Nodes:    make([]Node, 0, len(placed.Positions)),
		Edges:    make([]Edge, 0, len(resolved.Edges)),
		Dropped:  resolved.Dropped,
	}

	for _, pos := range placed.Positions {
		st := steps[pos.StepID]
		d.Nodes = append(d.Nodes, Node{
			StepID:  pos.StepID,
			Name:    st.Name,
			Kind:    st.Kind,
			Status:  st.Status,
			Address: pos.Address,
			Row:     pos.Coord.Row,
			Col:     pos.Coord.Col,
			X:       pos.X,
			Y:       pos.Y,
		})
	}
	for _, e := range resolved.Edges {
		d.Edges = append(d.Edges, Edge{Edge: e, SourceHandle: e.RoutingHint.Handle()})
	}
	for _, id := range placed.Unplaced {
		st := steps[id]
		d.Unplaced = append(d.Unplaced, Unplaced{StepID: id, Name: st.Name, Kind: st.Kind, Address: st.Address})
	}

	logger.Debug("diagram built",
		"workflow", snap.Workflow.ID,
		"nodes", len(d.Nodes),
		"edges", len(d.Edges),
		"unplaced", len(d.Unplaced),
		"dropped", len(d.Dropped),
		"fallbacks", resolved.Fallbacks)
	return d
}

// Node returns the node for a step.
func (d *Diagram) Node(stepID int64) (Node, bool) {
	for _, n := range d.Nodes {
		if n.StepID == stepID {
			return n, true
		}
	}
	return Node{}, false
}

// Stats summarizes a diagram for display.
type Stats struct {
	Lanes, Nodes, Edges, Unplaced, Dropped int
}

// Stats returns element counts.
func (d *Diagram) Stats() Stats {
	return Stats{
		Lanes:    len(d.Lanes),
		Nodes:    len(d.Nodes),
		Edges:    len(d.Edges),
		Unplaced: len(d.Unplaced),
		Dropped:  len(d.Dropped),
	}
}
