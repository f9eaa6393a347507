package grid

import (
	"math"

	"github.com/matzehuels/lanemap/pkg/errors"
)

// Default geometry, matching the map editor's drawing surface.
const (
	DefaultColumnWidth = 250.0
	DefaultRowHeight   = 180.0
	DefaultGutterWidth = 150.0
	DefaultTopPadding  = 50.0
)

// Geometry ties grid coordinates to pixel positions.
type Geometry struct {
	ColumnWidth float64 `json:"column_width" toml:"column_width" yaml:"column_width"`
	RowHeight   float64 `json:"row_height" toml:"row_height" yaml:"row_height"`
	GutterWidth float64 `json:"gutter_width" toml:"gutter_width" yaml:"gutter_width"` // swimlane label column
	TopPadding  float64 `json:"top_padding" toml:"top_padding" yaml:"top_padding"`
}

// DefaultGeometry returns the standard map geometry.
func DefaultGeometry() Geometry {
	return Geometry{
		ColumnWidth: DefaultColumnWidth,
		RowHeight:   DefaultRowHeight,
		GutterWidth: DefaultGutterWidth,
		TopPadding:  DefaultTopPadding,
	}
}

// WithDefaults fills zero fields from DefaultGeometry.
func (g Geometry) WithDefaults() Geometry {
	d := DefaultGeometry()
	if g.ColumnWidth == 0 {
		g.ColumnWidth = d.ColumnWidth
	}
	if g.RowHeight == 0 {
		g.RowHeight = d.RowHeight
	}
	if g.GutterWidth == 0 {
		g.GutterWidth = d.GutterWidth
	}
	if g.TopPadding == 0 {
		g.TopPadding = d.TopPadding
	}
	return g
}

// Validate checks that cell sizes are positive and offsets non-negative.
func (g Geometry) Validate() error {
	if g.ColumnWidth <= 0 || g.RowHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidInput,
			"column width and row height must be positive (got %.1f x %.1f)", g.ColumnWidth, g.RowHeight)
	}
	if g.GutterWidth < 0 || g.TopPadding < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "gutter width and top padding must not be negative")
	}
	return nil
}

// Point returns the top-left pixel position of the cell at c.
func (g Geometry) Point(c Coord) (x, y float64) {
	return g.ColumnX(c.Col), g.RowY(c.Row)
}

// ColumnX returns the x position of a zero-based column.
func (g Geometry) ColumnX(col int) float64 {
	return g.GutterWidth + float64(col)*g.ColumnWidth
}

// RowY returns the y position of a zero-based row.
func (g Geometry) RowY(row int) float64 {
	return g.TopPadding + float64(row)*g.RowHeight
}

// NearestColumn returns the zero-based column closest to x. The result is
// not clamped to the grid and may be negative left of the first column or
// above MaxColumnIndex far to the right.
func (g Geometry) NearestColumn(x float64) int {
	return roundHalfUp((x - g.GutterWidth) / g.ColumnWidth)
}

// NearestRow returns the zero-based row closest to y. The result is not
// clamped and may fall outside 0..MaxRowIndex.
func (g Geometry) NearestRow(y float64) int {
	return roundHalfUp((y - g.TopPadding) / g.RowHeight)
}

// roundHalfUp rounds halves toward positive infinity so that -0.5 snaps to 0
// the same way a pointer event halfway between two cells does in the editor.
// Results saturate at ±math.MaxInt32; NaN maps to math.MinInt32.
func roundHalfUp(v float64) int {
	r := math.Floor(v + 0.5)
	switch {
	case math.IsNaN(r), r <= math.MinInt32:
		return math.MinInt32
	case r >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(r)
}
