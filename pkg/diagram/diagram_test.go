package diagram

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/lanemap/pkg/connect"
	"github.com/matzehuels/lanemap/pkg/process"
)

func claims() process.Snapshot {
	return process.Snapshot{
		Workflow: process.Workflow{ID: 1, Name: "Claims"},
		Rows:     []process.Row{{Letter: "A", Name: "Intake"}, {Letter: "C", Name: "Review"}},
		Steps: []process.Step{
			{ID: 1, Name: "Receive", Kind: process.KindTask, Address: "A1",
				Connections: []process.Connection{{TargetAddress: "B1"}}},
			{ID: 2, Name: "Triage", Kind: process.KindTask, Address: "B1",
				Connections: []process.Connection{{TargetAddress: "C7"}}},
			{ID: 3, Name: "Approve?", Kind: process.KindDecision, Address: "C7",
				Connections: []process.Connection{
					{Label: "Yes", TargetAddress: "C8"},
					{Label: "No", TargetAddress: "A1"},
					{Label: "Escalate"},
				}},
			{ID: 4, Name: "Pay", Kind: process.KindTask, Address: "C8", Status: "in_progress"},
			{ID: 5, Name: "Archive", Kind: process.KindTask},
		},
	}
}

func TestBuild(t *testing.T) {
	d := Build(claims(), Options{})

	if got := d.Stats(); got != (Stats{Lanes: 3, Nodes: 4, Edges: 4, Unplaced: 1, Dropped: 1}) {
		t.Errorf("Stats() = %+v", got)
	}
	if d.Version != FormatVersion || d.Workflow.Name != "Claims" {
		t.Errorf("header = v%d %q", d.Version, d.Workflow.Name)
	}
	if d.Geometry.ColumnWidth != 250 {
		t.Errorf("geometry not defaulted: %+v", d.Geometry)
	}

	n, ok := d.Node(3)
	if !ok || !n.IsDecision() || n.X != 1650 || n.Y != 410 || n.Name != "Approve?" {
		t.Errorf("node 3 = %+v", n)
	}
	if n, _ := d.Node(4); n.Status != "in_progress" {
		t.Errorf("node 4 status = %q", n.Status)
	}

	var handles []string
	for _, e := range d.Edges {
		if e.SourceStepID == 3 {
			handles = append(handles, e.SourceHandle)
		}
	}
	if want := []string{"right", "top"}; !reflect.DeepEqual(handles, want) {
		t.Errorf("decision handles = %v, want %v", handles, want)
	}

	if d.Unplaced[0].StepID != 5 || d.Unplaced[0].Name != "Archive" {
		t.Errorf("Unplaced = %+v", d.Unplaced)
	}
	if d.Dropped[0].Reason != connect.ReasonEmptyTarget {
		t.Errorf("Dropped = %+v", d.Dropped)
	}
	if d.Lanes[2].Label() != "C - Review" || d.Lanes[1].Label() != "B" {
		t.Errorf("lane labels = %q, %q", d.Lanes[2].Label(), d.Lanes[1].Label())
	}
}

func TestBuildMoveDropsEdge(t *testing.T) {
	snap := process.Snapshot{Steps: []process.Step{
		{ID: 1, Address: "A1", Connections: []process.Connection{{TargetAddress: "B1"}}},
		{ID: 2, Address: "B1"},
	}}
	if d := Build(snap, Options{}); len(d.Edges) != 1 {
		t.Fatalf("edges before move = %d, want 1", len(d.Edges))
	}

	snap.Steps[1].Address = "C1"
	d := Build(snap, Options{})
	if len(d.Edges) != 0 {
		t.Errorf("edges after move = %+v, want none", d.Edges)
	}
	if len(d.Dropped) != 1 || d.Dropped[0].Target != "B1" {
		t.Errorf("Dropped = %+v, want the B1 connection", d.Dropped)
	}
}

func TestBuildEmpty(t *testing.T) {
	d := Build(process.Snapshot{}, Options{})
	if len(d.Nodes) != 0 || len(d.Edges) != 0 {
		t.Errorf("nodes/edges = %d/%d, want 0/0", len(d.Nodes), len(d.Edges))
	}
	if len(d.Lanes) != 1 {
		t.Errorf("lanes = %d, want 1", len(d.Lanes))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	d := Build(claims(), Options{})
	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"id": "edge-3-4-0"`) {
		t.Errorf("marshaled diagram missing edge id:\n%s", data)
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, d) {
		t.Errorf("round trip changed diagram:\n%+v\n%+v", back, d)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := Unmarshal([]byte(`{"version": 99}`)); err == nil {
		t.Error("expected error for future version")
	}
}

func TestReadWriteFile(t *testing.T) {
	d := Build(claims(), Options{})
	path := filepath.Join(t.TempDir(), "claims.diagram.json")
	if err := WriteFile(d, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(back.Nodes) != len(d.Nodes) {
		t.Errorf("nodes = %d, want %d", len(back.Nodes), len(d.Nodes))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(Build(claims(), Options{}), &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	d, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(d.Edges) != 4 {
		t.Errorf("edges = %d, want 4", len(d.Edges))
	}
}
