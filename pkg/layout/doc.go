// Package layout projects grid addresses onto pixel positions.
//
// A [Projector] takes a full snapshot of steps and declared rows and returns
// a [Result]: one [Position] per placed step, the contiguous set of lanes to
// draw (row 0 through the highest occupied or declared row, so gaps render
// as empty lanes), the horizontal dividers between lanes, and the ids of the
// steps that could not be placed.
//
// Projection is a pure function of its input and the [grid.Geometry]. There
// is no iteration or randomness, so the same snapshot always yields the
// same result:
//
//	p := layout.New(grid.DefaultGeometry(), layout.Config{}, logger)
//	res := p.Project(snap.Steps, snap.Rows)
//	for _, pos := range res.Positions {
//	    fmt.Println(pos.StepID, pos.X, pos.Y)
//	}
//
// Steps whose address is empty or does not parse are not an error: they are
// listed in [Result.Unplaced] and skipped.
package layout
