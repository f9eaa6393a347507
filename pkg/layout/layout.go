package layout

import (
	"cmp"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/process"
)

// Config defaults.
const (
	DefaultMinColumns    = 10
	DefaultColumnPadding = 5
	DefaultLabelX        = 10.0
	DefaultLabelOffsetY  = 12.0
	DefaultDividerExtra  = 200.0
)

// Config controls the decorations around the grid. Node positions depend
// only on the geometry.
type Config struct {
	MinColumns    int     `json:"min_columns"`    // dividers span at least this many columns
	ColumnPadding int     `json:"column_padding"` // extra columns added past the widest step
	LabelX        float64 `json:"label_x"`        // x of lane labels
	LabelOffsetY  float64 `json:"label_offset_y"` // lane labels sit this far above the lane's y
	DividerExtra  float64 `json:"divider_extra"`  // extra divider width past the last column
}

// WithDefaults fills zero fields.
func (c Config) WithDefaults() Config {
	if c.MinColumns == 0 {
		c.MinColumns = DefaultMinColumns
	}
	if c.ColumnPadding == 0 {
		c.ColumnPadding = DefaultColumnPadding
	}
	if c.LabelX == 0 {
		c.LabelX = DefaultLabelX
	}
	if c.LabelOffsetY == 0 {
		c.LabelOffsetY = DefaultLabelOffsetY
	}
	if c.DividerExtra == 0 {
		c.DividerExtra = DefaultDividerExtra
	}
	return c
}

// Position is the pixel location of a placed step.
type Position struct {
	StepID  int64      `json:"stepId"`
	Address string     `json:"address"` // canonical form
	Coord   grid.Coord `json:"coord"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
}

// Lane is one rendered swimlane.
type Lane struct {
	Row    int     `json:"row"`
	Letter string  `json:"letter"`
	Name   string  `json:"name,omitempty"`
	Y      float64 `json:"y"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
}

// Label returns "A - Name", or just the letter for an unnamed lane.
func (l Lane) Label() string {
	if l.Name == "" {
		return l.Letter
	}
	return l.Letter + " - " + l.Name
}

// Divider is a horizontal rule halfway between two lanes. The last divider
// closes the bottom lane.
type Divider struct {
	AboveRow int     `json:"aboveRow"` // index of the lane below the rule
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
}

// Result is the output of one projection.
type Result struct {
	Positions []Position `json:"positions"`
	Lanes     []Lane     `json:"lanes"`
	Dividers  []Divider  `json:"dividers"`
	Unplaced  []int64    `json:"unplaced,omitempty"`
	Columns   int        `json:"columns"` // column span used for dividers
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
}

// Position returns the position of the given step.
func (r *Result) Position(stepID int64) (Position, bool) {
	for _, p := range r.Positions {
		if p.StepID == stepID {
			return p, true
		}
	}
	return Position{}, false
}

// Projector maps steps onto the drawing surface.
type Projector struct {
	geom   grid.Geometry
	cfg    Config
	logger *log.Logger
}

// New returns a Projector. Zero geometry or config fields take defaults and
// a nil logger discards output.
func New(geom grid.Geometry, cfg Config, logger *log.Logger) *Projector {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Projector{
		geom:   geom.WithDefaults(),
		cfg:    cfg.WithDefaults(),
		logger: logger,
	}
}

// Geometry returns the geometry used by the projector.
func (p *Projector) Geometry() grid.Geometry { return p.geom }

// Project computes positions, lanes, and dividers for a snapshot.
// Positions are ordered by step id.
func (p *Projector) Project(steps []process.Step, rows []process.Row) Result {
	var res Result

	maxCol := 0
	occupied := make(map[int]bool)
	for _, st := range steps {
		c, ok := st.Coord()
		if !ok {
			res.Unplaced = append(res.Unplaced, st.ID)
			if st.Address != "" {
				p.logger.Debug("step not placed", "step", st.ID, "address", st.Address)
			}
			continue
		}
		x, y := p.geom.Point(c)
		res.Positions = append(res.Positions, Position{
			StepID:  st.ID,
			Address: c.String(),
			Coord:   c,
			X:       x,
			Y:       y,
		})
		occupied[c.Row] = true
		maxCol = max(maxCol, c.Col)
	}
	slices.SortFunc(res.Positions, func(a, b Position) int { return cmp.Compare(a.StepID, b.StepID) })
	slices.Sort(res.Unplaced)

	names := p.laneNames(rows, occupied)
	lastRow := 0
	for row := range occupied {
		lastRow = max(lastRow, row)
	}

	res.Columns = max(p.cfg.MinColumns, maxCol) + p.cfg.ColumnPadding
	dividerWidth := float64(res.Columns)*p.geom.ColumnWidth + p.geom.GutterWidth + p.cfg.DividerExtra
	half := p.geom.RowHeight / 2

	for row := 0; row <= lastRow; row++ {
		letter, _ := grid.Letter(row)
		y := p.geom.RowY(row)
		res.Lanes = append(res.Lanes, Lane{
			Row:    row,
			Letter: letter,
			Name:   names[row],
			Y:      y,
			LabelX: p.cfg.LabelX,
			LabelY: y - p.cfg.LabelOffsetY,
		})
		if row > 0 {
			res.Dividers = append(res.Dividers, Divider{AboveRow: row, Y: y - half, Width: dividerWidth})
		}
	}
	res.Dividers = append(res.Dividers, Divider{
		AboveRow: lastRow + 1,
		Y:        p.geom.RowY(lastRow+1) - half,
		Width:    dividerWidth,
	})

	res.Width = dividerWidth
	res.Height = p.geom.RowY(lastRow+1) - half + p.geom.TopPadding
	return res
}

// laneNames indexes declared row names and marks declared rows as occupied.
// Later declarations of the same letter win.
func (p *Projector) laneNames(rows []process.Row, occupied map[int]bool) map[int]string {
	names := make(map[int]string, len(rows))
	for _, r := range rows {
		idx, err := grid.RowIndex(strings.TrimSpace(r.Letter))
		if err != nil {
			p.logger.Warn("ignoring row", "letter", r.Letter, "err", err)
			continue
		}
		names[idx] = r.Name
		occupied[idx] = true
	}
	return names
}

// RowSet returns the contiguous list of row indexes that would be rendered
// for the given steps and rows: 0 through the highest row that is occupied
// by a placed step or declared. An empty input still renders row 0.
func RowSet(steps []process.Step, rows []process.Row) []int {
	last := 0
	for _, st := range steps {
		if c, ok := st.Coord(); ok {
			last = max(last, c.Row)
		}
	}
	for _, r := range rows {
		if idx, err := grid.RowIndex(strings.TrimSpace(r.Letter)); err == nil {
			last = max(last, idx)
		}
	}
	out := make([]int, last+1)
	for i := range out {
		out[i] = i
	}
	return out
}
