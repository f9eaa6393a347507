package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/layout"
	"github.com/matzehuels/lanemap/pkg/process"
)

func placeDiagram() *diagram.Diagram {
	return &diagram.Diagram{
		Columns: 10,
		Lanes: []layout.Lane{
			{Row: 0, Letter: "A", Name: "Intake"},
			{Row: 1, Letter: "B"},
		},
		Unplaced: []diagram.Unplaced{
			{StepID: 4, Name: "Archive", Kind: process.KindTask},
			{StepID: 9, Name: "Escalate?", Kind: process.KindDecision, Address: "AA1"},
		},
	}
}

func press(t *testing.T, m PlaceModel, keys ...tea.KeyType) (PlaceModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: k})
		m = next.(PlaceModel)
	}
	return m, cmd
}

func TestNewPlaceModel(t *testing.T) {
	m := NewPlaceModel(placeDiagram())

	var letters []string
	for _, l := range m.Lanes {
		letters = append(letters, l.Letter)
	}
	if got := strings.Join(letters, ","); got != "A,B,C" {
		t.Errorf("lanes = %s, want A,B,C (existing lanes plus the next one)", got)
	}
	if m.Columns != 10 {
		t.Errorf("Columns = %d, want 10", m.Columns)
	}
}

func TestPlaceModelSelect(t *testing.T) {
	m := NewPlaceModel(placeDiagram())

	m, _ = press(t, m, tea.KeyDown, tea.KeyEnter)
	if m.stage != stageLane {
		t.Fatalf("stage = %v, want lane stage", m.stage)
	}
	if !strings.Contains(m.View(), "Escalate?") {
		t.Error("lane view should name the chosen step")
	}

	m, _ = press(t, m, tea.KeyDown, tea.KeyEnter, tea.KeyRight, tea.KeyRight)
	if !strings.Contains(m.View(), "B3") {
		t.Errorf("column view should preview B3:\n%s", m.View())
	}

	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil {
		t.Error("final enter should quit")
	}
	want := Placement{StepID: 9, Lane: "B", Column: 2}
	if m.Selected == nil || *m.Selected != want {
		t.Fatalf("Selected = %+v, want %+v", m.Selected, want)
	}
	if got := m.Selected.Address(); got != "B3" {
		t.Errorf("Address() = %q, want B3", got)
	}
}

func TestPlaceModelBack(t *testing.T) {
	m := NewPlaceModel(placeDiagram())
	m, _ = press(t, m, tea.KeyDown, tea.KeyEnter, tea.KeyEnter)
	if m.stage != stageColumn {
		t.Fatalf("stage = %v, want column stage", m.stage)
	}

	m, _ = press(t, m, tea.KeyLeft, tea.KeyEsc, tea.KeyEsc)
	if m.stage != stageStep || m.cursor != 1 {
		t.Errorf("after two esc: stage %v cursor %d, want step stage at 1", m.stage, m.cursor)
	}
	if m.column != 0 {
		t.Errorf("column = %d, left past 0 should stay 0", m.column)
	}

	m, cmd := press(t, m, tea.KeyEsc)
	if cmd == nil || m.Selected != nil {
		t.Error("esc on the first stage should quit without a selection")
	}
}

func TestPlaceModelCursorBounds(t *testing.T) {
	m := NewPlaceModel(placeDiagram())
	m, _ = press(t, m, tea.KeyUp, tea.KeyDown, tea.KeyDown, tea.KeyDown)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	if !strings.Contains(m.View(), "[2/2]") {
		t.Errorf("step view should show position:\n%s", m.View())
	}
}
