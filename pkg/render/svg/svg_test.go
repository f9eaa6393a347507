package svg

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/process"
)

func sample() *diagram.Diagram {
	snap := process.Snapshot{
		Workflow: process.Workflow{ID: 1, Name: "Claims & Payments"},
		Steps: []process.Step{
			{ID: 1, Name: "Check claim", Kind: process.KindDecision, Address: "A1",
				Connections: []process.Connection{{TargetAddress: "B2", Label: "Approve"}, {TargetAddress: "C9"}}},
			{ID: 2, Name: "Pay", Kind: process.KindTask, Status: "transformed", Address: "B2"},
			{ID: 3, Name: "Archive", Kind: process.KindTask, Address: "C3"},
			{ID: 4, Name: "Loose", Kind: process.KindTask},
		},
		Rows: []process.Row{{Letter: "A", Name: "Intake"}},
	}
	return diagram.Build(snap, diagram.Options{})
}

func TestRenderWellFormed(t *testing.T) {
	out := Render(sample(), WithTitle(true), WithBackground("white"))

	dec := xml.NewDecoder(strings.NewReader(string(out)))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("invalid XML: %v\n%s", err, out)
		}
	}
}

func TestRenderContent(t *testing.T) {
	out := string(Render(sample()))

	for _, want := range []string{
		`A - Intake`,
		`id="lane-B"`,
		`class="divider"`,
		`<polygon`,
		`fill="#dcfce7"`,
		`id="edge-1-2-0"`,
		`>Approve<`,
		`id="step-3"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, `id="step-4"`) {
		t.Error("unplaced step should not be drawn")
	}
	if strings.Contains(out, "Claims") {
		t.Error("title drawn without WithTitle")
	}
}

func TestRenderTitleEscaped(t *testing.T) {
	out := string(Render(sample(), WithTitle(true)))
	if !strings.Contains(out, "Claims &amp; Payments") {
		t.Error("title should be escaped")
	}
}

func TestWithoutEdgeLabels(t *testing.T) {
	out := string(Render(sample(), WithoutEdgeLabels()))
	if strings.Contains(out, "Approve") {
		t.Error("edge label drawn despite WithoutEdgeLabels")
	}
}

func TestSourceAnchor(t *testing.T) {
	n := diagram.Node{Kind: process.KindDecision, X: 100, Y: 200}
	tests := []struct {
		handle string
		x, y   float64
	}{
		{"bottom", 150, 300},
		{"top", 150, 200},
		{"right", 200, 250},
		{"", 200, 250},
	}
	for _, tt := range tests {
		a := sourceAnchor(n, tt.handle)
		if a.x != tt.x || a.y != tt.y {
			t.Errorf("sourceAnchor(%q) = (%v, %v), want (%v, %v)", tt.handle, a.x, a.y, tt.x, tt.y)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("a very long step name here", 10); len([]rune(got)) > 10 || !strings.HasSuffix(got, "…") {
		t.Errorf("truncate = %q", got)
	}
}
