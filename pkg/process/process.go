package process

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matzehuels/lanemap/pkg/grid"
)

// Kind is the shape of a step.
type Kind string

// Step kinds.
const (
	KindTask     Kind = "task"
	KindDecision Kind = "decision"
)

// ParseKind maps a stored kind to a Kind. Anything other than "decision"
// is treated as a task.
func ParseKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), string(KindDecision)) {
		return KindDecision
	}
	return KindTask
}

// Connection is a declared, possibly labeled, link to whatever step
// currently occupies TargetAddress.
type Connection struct {
	Label         string `json:"condition,omitempty" toml:"condition,omitempty" yaml:"condition,omitempty" bson:"condition,omitempty"`
	TargetAddress string `json:"next,omitempty" toml:"next,omitempty" yaml:"next,omitempty" bson:"next,omitempty"`
}

// Step is an addressable unit of a process.
type Step struct {
	ID          int64        `json:"id" toml:"id" yaml:"id" bson:"id"`
	Name        string       `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Kind        Kind         `json:"kind" toml:"kind" yaml:"kind" bson:"kind"`
	Address     string       `json:"address,omitempty" toml:"address,omitempty" yaml:"address,omitempty" bson:"address,omitempty"` // empty when unplaced
	Status      string       `json:"status,omitempty" toml:"status,omitempty" yaml:"status,omitempty" bson:"status,omitempty"`
	Connections []Connection `json:"connections,omitempty" toml:"connections,omitempty" yaml:"connections,omitempty" bson:"connections,omitempty"`
}

// IsDecision reports whether the step is a decision.
func (s Step) IsDecision() bool { return s.Kind == KindDecision }

// Coord returns the step's parsed grid coordinate. ok is false when the
// step is unplaced or its address does not parse.
func (s Step) Coord() (c grid.Coord, ok bool) {
	if s.Address == "" {
		return grid.Coord{}, false
	}
	c, err := grid.Parse(s.Address)
	if err != nil {
		return grid.Coord{}, false
	}
	return c, true
}

// DisplayName returns the step name, or a placeholder when it has none.
func (s Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return "Unnamed"
}

// Row is a named swimlane.
type Row struct {
	Letter string `json:"letter" toml:"letter" yaml:"letter" bson:"letter"`
	Name   string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
}

// Index returns the zero-based row index of the lane.
func (r Row) Index() (int, error) {
	return grid.RowIndex(r.Letter)
}

// Workflow groups the steps and rows of one process map.
type Workflow struct {
	ID          int64  `json:"id" toml:"id" yaml:"id" bson:"_id"`
	Name        string `json:"name" toml:"name" yaml:"name" bson:"name"`
	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
}

// Snapshot is the full state of one workflow: every step and every declared
// row. Layout always runs over a complete snapshot.
type Snapshot struct {
	Workflow Workflow `json:"workflow" toml:"workflow" yaml:"workflow"`
	Rows     []Row    `json:"rows,omitempty" toml:"rows,omitempty" yaml:"rows,omitempty"`
	Steps    []Step   `json:"steps" toml:"steps" yaml:"steps"`
}

// Step returns the step with the given id.
func (s *Snapshot) Step(id int64) (Step, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return Step{}, false
}

// Unplaced returns the steps that have no parseable address, ordered by id.
func (s *Snapshot) Unplaced() []Step {
	var out []Step
	for _, st := range s.Steps {
		if _, ok := st.Coord(); !ok {
			out = append(out, st)
		}
	}
	slices.SortFunc(out, func(a, b Step) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Workflow: s.Workflow,
		Rows:     slices.Clone(s.Rows),
		Steps:    make([]Step, len(s.Steps)),
	}
	for i, st := range s.Steps {
		st.Connections = slices.Clone(st.Connections)
		out.Steps[i] = st
	}
	return out
}
