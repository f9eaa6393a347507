package placement

import (
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/process"
)

// Request asks persistence to move a step to a new address.
type Request struct {
	StepID     int64  `json:"stepId"`
	NewAddress string `json:"newAddress"`
}

// Engine snaps pointer positions to grid addresses.
type Engine struct {
	geom   grid.Geometry
	logger *log.Logger
}

// New returns an Engine for the given geometry. Zero fields take defaults
// and a nil logger discards output.
func New(geom grid.Geometry, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{geom: geom.WithDefaults(), logger: logger}
}

// Snap returns the cell nearest to a dragged node's position. Columns left
// of the first one clamp to column 0. Rows outside A..Z, columns past
// grid.MaxColumnIndex and NaN coordinates are an error.
func (e *Engine) Snap(x, y float64) (grid.Coord, error) {
	if math.IsNaN(y) {
		return grid.Coord{}, errors.New(errors.ErrCodeOutOfRange, "position y is not a number")
	}
	row := e.geom.NearestRow(y)
	if row < 0 || row > grid.MaxRowIndex {
		return grid.Coord{}, errors.New(errors.ErrCodeOutOfRange,
			"position y=%.1f maps to row %d, outside A-Z", y, row)
	}
	col, err := e.DropColumn(x)
	if err != nil {
		return grid.Coord{}, err
	}
	return grid.Coord{Row: row, Col: col}, nil
}

// DropColumn returns the zero-based column for a drop at x. The result is
// never left of the first column; x past the last supported column or NaN
// is an error.
func (e *Engine) DropColumn(x float64) (int, error) {
	if math.IsNaN(x) {
		return 0, errors.New(errors.ErrCodeOutOfRange, "position x is not a number")
	}
	col := e.geom.NearestColumn(x)
	if col > grid.MaxColumnIndex {
		return 0, errors.New(errors.ErrCodeOutOfRange,
			"position x=%g is past the last column", x)
	}
	return max(0, col), nil
}

// Drag computes the request for a placed step released at (x, y). ok is
// false when the step would stay where it is.
func (e *Engine) Drag(stepID int64, current string, x, y float64) (Request, bool, error) {
	c, err := e.Snap(x, y)
	if err != nil {
		e.logger.Debug("drag rejected", "step", stepID, "x", x, "y", y, "err", err)
		return Request{}, false, err
	}
	return e.request(stepID, current, c)
}

// Drop computes the request for a step dropped into lane at x. The lane is
// a single row letter in either case.
func (e *Engine) Drop(stepID int64, current, lane string, x float64) (Request, bool, error) {
	row, err := grid.RowIndex(strings.TrimSpace(lane))
	if err != nil {
		return Request{}, false, err
	}
	col, err := e.DropColumn(x)
	if err != nil {
		e.logger.Debug("drop rejected", "step", stepID, "lane", lane, "x", x, "err", err)
		return Request{}, false, err
	}
	return e.request(stepID, current, grid.Coord{Row: row, Col: col})
}

// DragStep is Drag for a step looked up in a snapshot.
func (e *Engine) DragStep(snap *process.Snapshot, stepID int64, x, y float64) (Request, bool, error) {
	st, ok := snap.Step(stepID)
	if !ok {
		return Request{}, false, errors.New(errors.ErrCodeStepNotFound, "step %d not found", stepID)
	}
	return e.Drag(st.ID, st.Address, x, y)
}

// DropStep is Drop for a step looked up in a snapshot.
func (e *Engine) DropStep(snap *process.Snapshot, stepID int64, lane string, x float64) (Request, bool, error) {
	st, ok := snap.Step(stepID)
	if !ok {
		return Request{}, false, errors.New(errors.ErrCodeStepNotFound, "step %d not found", stepID)
	}
	return e.Drop(st.ID, st.Address, lane, x)
}

func (e *Engine) request(stepID int64, current string, c grid.Coord) (Request, bool, error) {
	addr, err := grid.Format(c)
	if err != nil {
		return Request{}, false, err
	}
	if SameAddress(current, addr) {
		e.logger.Debug("position unchanged", "step", stepID, "address", addr)
		return Request{}, false, nil
	}
	return Request{StepID: stepID, NewAddress: addr}, true, nil
}

// SameAddress reports whether two addresses name the same cell. Addresses
// that do not parse are never the same as anything.
func SameAddress(a, b string) bool {
	na, err := grid.Normalize(a)
	if err != nil {
		return false
	}
	nb, err := grid.Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}
