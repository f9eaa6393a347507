package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/grid"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PlaceModel - interactive placement of unplaced steps
// =============================================================================

type placeStage int

const (
	stageStep placeStage = iota
	stageLane
	stageColumn
)

// Placement is the choice made in the place TUI.
type Placement struct {
	StepID int64
	Lane   string
	Column int // zero-based
}

// Address returns the grid address the placement targets.
func (p Placement) Address() string {
	row, err := grid.RowIndex(p.Lane)
	if err != nil {
		return ""
	}
	return grid.Coord{Row: row, Col: p.Column}.String()
}

// LaneChoice is one lane offered for placement.
type LaneChoice struct {
	Letter string
	Name   string
}

func (l LaneChoice) label() string {
	if l.Name == "" {
		return l.Letter
	}
	return l.Letter + " - " + l.Name
}

// PlaceModel is the bubbletea model behind "lanemap place": pick an
// unplaced step, then a lane, then a column.
type PlaceModel struct {
	Steps   []diagram.Unplaced
	Lanes   []LaneChoice
	Columns int

	stage    placeStage
	cursor   int
	offset   int
	height   int
	step     int
	lane     int
	column   int
	Selected *Placement
}

// NewPlaceModel offers the diagram's unplaced steps, its lanes plus the
// next free lane, and its columns.
func NewPlaceModel(d *diagram.Diagram) PlaceModel {
	m := PlaceModel{
		Steps:   d.Unplaced,
		Columns: max(d.Columns, 1),
		height:  12,
	}
	last := -1
	for _, l := range d.Lanes {
		m.Lanes = append(m.Lanes, LaneChoice{Letter: l.Letter, Name: l.Name})
		last = max(last, l.Row)
	}
	if next, err := grid.Letter(last + 1); err == nil {
		m.Lanes = append(m.Lanes, LaneChoice{Letter: next})
	}
	return m
}

func (m PlaceModel) Init() tea.Cmd {
	return nil
}

func (m PlaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			if m.stage == stageStep {
				return m, tea.Quit
			}
			m.back()
		case "up", "k":
			if m.stage != stageColumn && m.cursor > 0 {
				m.cursor--
				m.offset = min(m.offset, m.cursor)
			}
		case "down", "j":
			if m.stage != stageColumn && m.cursor < m.listLen()-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "left", "h":
			if m.stage == stageColumn && m.column > 0 {
				m.column--
			}
		case "right", "l":
			if m.stage == stageColumn {
				m.column++
			}
		case "enter":
			return m.advance()
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m PlaceModel) listLen() int {
	if m.stage == stageLane {
		return len(m.Lanes)
	}
	return len(m.Steps)
}

func (m *PlaceModel) back() {
	switch m.stage {
	case stageLane:
		m.stage, m.cursor = stageStep, m.step
	case stageColumn:
		m.stage, m.cursor = stageLane, m.lane
	}
	m.offset = 0
}

func (m PlaceModel) advance() (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageStep:
		if len(m.Steps) == 0 {
			return m, tea.Quit
		}
		m.step = m.cursor
		m.stage, m.cursor, m.offset = stageLane, m.lane, 0
	case stageLane:
		if len(m.Lanes) == 0 {
			return m, nil
		}
		m.lane = m.cursor
		m.stage = stageColumn
	case stageColumn:
		m.Selected = &Placement{
			StepID: m.Steps[m.step].StepID,
			Lane:   m.Lanes[m.lane].Letter,
			Column: m.column,
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m PlaceModel) View() string {
	var b strings.Builder
	switch m.stage {
	case stageStep:
		b.WriteString(StyleTitle.Render("Select Step"))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
		b.WriteString("\n\n")
		b.WriteString(m.stepTable())
		b.WriteString("\n\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.cursor+1, len(m.Steps)), len(m.Steps))))
	case stageLane:
		b.WriteString(StyleTitle.Render("Select Lane for " + m.Steps[m.step].Name))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  esc back"))
		b.WriteString("\n\n")
		for i, l := range m.Lanes {
			line := "  " + l.label()
			if i == m.cursor {
				b.WriteString(listSelectedStyle.Render("▸ " + l.label()))
			} else if l.Name == "" {
				b.WriteString(listDimStyle.Render(line))
			} else {
				b.WriteString(listNormalStyle.Render(line))
			}
			b.WriteString("\n")
		}
	case stageColumn:
		p := Placement{Lane: m.Lanes[m.lane].Letter, Column: m.column}
		b.WriteString(StyleTitle.Render("Select Column"))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("←/→ change  ⏎ place  esc back"))
		b.WriteString("\n\n")
		b.WriteString("  " + listDimStyle.Render("‹ ") + listSelectedStyle.Render(strconv.Itoa(m.column+1)) + listDimStyle.Render(" ›"))
		b.WriteString("   " + StyleDim.Render(iconArrow) + " " + styleAddress.Render(p.Address()))
		if m.column >= m.Columns {
			b.WriteString("  " + StyleWarning.Render("past the last column"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m PlaceModel) stepTable() string {
	end := min(m.offset+m.height, len(m.Steps))
	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		s := m.Steps[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		addr := s.Address
		if addr == "" {
			addr = "—"
		}
		rows = append(rows, []string{cursor, strconv.FormatInt(s.StepID, 10), s.Name, string(s.Kind), addr})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Step", "Kind", "Address").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.offset+row == m.cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 4 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}
