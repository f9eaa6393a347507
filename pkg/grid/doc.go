// Package grid implements the textual grid address format used to place
// process steps on a swimlane map.
//
// # Addresses
//
// An address is a row letter followed by a one-based column number:
//
//	A1   → Coord{Row: 0, Col: 0}
//	c12  → Coord{Row: 2, Col: 11}   (input is case-insensitive)
//	B007 → Coord{Row: 1, Col: 6}    (formats back as "B7")
//
// [Parse] accepts anything shaped like `^[A-Za-z]+[0-9]+$`. Only single-letter
// rows (A–Z) are supported; a multi-letter prefix such as "AA1" is recognized
// and rejected with [errors.ErrCodeUnsupportedRow] instead of being mapped to
// a guessed row index. [Format] is the inverse and always emits the canonical
// form (uppercase letter, no leading zeros), so for any valid s:
//
//	Format(Parse(s)) == Normalize(s)
//
// # Geometry
//
// [Geometry] holds the pixel constants that tie the grid to a drawing surface
// (column width, row height, label gutter, top padding). It is passed
// explicitly to the layout projector and the placement engine so both agree
// on the same quantization without shared globals.
package grid
