package connect

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/process"
)

// RoutingHint says where an edge leaves a decision.
type RoutingHint string

// Routing hints. Edges from tasks have HintNone.
const (
	HintNone    RoutingHint = ""
	HintBelow   RoutingHint = "below"
	HintAbove   RoutingHint = "above"
	HintLateral RoutingHint = "lateral"
)

// Handle returns the side of the source shape the edge leaves from.
func (h RoutingHint) Handle() string {
	switch h {
	case HintBelow:
		return "bottom"
	case HintAbove:
		return "top"
	case HintLateral:
		return "right"
	}
	return ""
}

// DropReason explains why a connection produced no edge.
type DropReason string

// Drop reasons.
const (
	ReasonEmptyTarget    DropReason = "empty target"
	ReasonNoLane         DropReason = "target names no lane"
	ReasonEmptyLane      DropReason = "no step in target lane"
	ReasonSourceUnplaced DropReason = "source unplaced"
)

// Edge is a resolved connection between two placed steps.
type Edge struct {
	ID           string      `json:"id"`
	SourceStepID int64       `json:"sourceStepId"`
	TargetStepID int64       `json:"targetStepId"`
	Index        int         `json:"index"` // position in the source's connection list
	Label        string      `json:"label,omitempty"`
	RoutingHint  RoutingHint `json:"routingHint,omitempty"`
	Fallback     bool        `json:"fallback,omitempty"` // resolved by lane, not by exact address
}

// EdgeID formats the stable edge identifier "edge-<src>-<dst>-<index>".
func EdgeID(src, dst int64, index int) string {
	return fmt.Sprintf("edge-%d-%d-%d", src, dst, index)
}

// Drop is a connection entry that produced no edge.
type Drop struct {
	StepID int64      `json:"stepId"`
	Index  int        `json:"index"`
	Target string     `json:"target,omitempty"`
	Reason DropReason `json:"reason"`
}

// Result holds the edges and drops for one snapshot.
type Result struct {
	Edges     []Edge `json:"edges"`
	Dropped   []Drop `json:"dropped,omitempty"`
	Fallbacks int    `json:"fallbacks"`
}

// Resolver resolves connections. It holds no state between calls.
type Resolver struct {
	logger *log.Logger
}

// New returns a Resolver. A nil logger discards output.
func New(logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{logger: logger}
}

type placed struct {
	id    int64
	coord grid.Coord
}

// index is the lookup built once per Resolve call.
type index struct {
	byAddress map[grid.Coord]placed
	laneHead  map[int]placed // lowest column per row, then lowest id
	coords    map[int64]grid.Coord
}

func buildIndex(steps []process.Step) index {
	idx := index{
		byAddress: make(map[grid.Coord]placed),
		laneHead:  make(map[int]placed),
		coords:    make(map[int64]grid.Coord),
	}
	for _, st := range steps {
		c, ok := st.Coord()
		if !ok {
			continue
		}
		p := placed{id: st.ID, coord: c}
		idx.coords[st.ID] = c
		if cur, ok := idx.byAddress[c]; !ok || p.id < cur.id {
			idx.byAddress[c] = p
		}
		if cur, ok := idx.laneHead[c.Row]; !ok || before(p, cur) {
			idx.laneHead[c.Row] = p
		}
	}
	return idx
}

func before(a, b placed) bool {
	if a.coord.Col != b.coord.Col {
		return a.coord.Col < b.coord.Col
	}
	return a.id < b.id
}

// Resolve computes edges for every connection in the snapshot. Sources are
// visited in id order and entries in declaration order, so the output is
// deterministic. Duplicate targets yield duplicate edges.
func (r *Resolver) Resolve(steps []process.Step) Result {
	idx := buildIndex(steps)

	ordered := slices.Clone(steps)
	slices.SortStableFunc(ordered, func(a, b process.Step) int { return cmp.Compare(a.ID, b.ID) })

	res := Result{Edges: []Edge{}}
	for _, src := range ordered {
		if len(src.Connections) == 0 {
			continue
		}
		srcCoord, srcPlaced := idx.coords[src.ID]

		for i, conn := range src.Connections {
			drop := func(reason DropReason) {
				d := Drop{StepID: src.ID, Index: i, Target: conn.TargetAddress, Reason: reason}
				res.Dropped = append(res.Dropped, d)
				r.logger.Debug("connection dropped", "step", d.StepID, "index", d.Index, "target", d.Target, "reason", d.Reason)
			}

			if conn.TargetAddress == "" {
				drop(ReasonEmptyTarget)
				continue
			}
			if !srcPlaced {
				drop(ReasonSourceUnplaced)
				continue
			}

			dst, fallback, reason := idx.lookup(conn.TargetAddress)
			if reason != "" {
				drop(reason)
				continue
			}
			if fallback {
				res.Fallbacks++
				r.logger.Debug("connection resolved by lane", "step", src.ID, "target", conn.TargetAddress, "resolved", dst.coord.String())
			}

			e := Edge{
				ID:           EdgeID(src.ID, dst.id, i),
				SourceStepID: src.ID,
				TargetStepID: dst.id,
				Index:        i,
				Label:        conn.Label,
				Fallback:     fallback,
			}
			if src.IsDecision() {
				e.RoutingHint = Route(srcCoord, dst.coord)
			}
			res.Edges = append(res.Edges, e)
		}
	}
	return res
}

func (idx index) lookup(target string) (placed, bool, DropReason) {
	if c, err := grid.Parse(target); err == nil {
		if p, ok := idx.byAddress[c]; ok {
			return p, false, ""
		}
	}
	row, ok := grid.LeadingRow(target)
	if !ok {
		return placed{}, false, ReasonNoLane
	}
	p, ok := idx.laneHead[row]
	if !ok {
		return placed{}, false, ReasonEmptyLane
	}
	return p, true, ""
}

// Route returns the routing hint for an edge from src to dst.
func Route(src, dst grid.Coord) RoutingHint {
	switch {
	case dst.Row > src.Row:
		return HintBelow
	case dst.Row < src.Row:
		return HintAbove
	}
	return HintLateral
}
