package grid

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/lanemap/pkg/errors"
)

// MaxRowIndex is the largest supported zero-based row index ('Z').
const MaxRowIndex = 25

// RowCount is the number of addressable rows (A–Z).
const RowCount = MaxRowIndex + 1

// MaxColumnIndex is the largest supported zero-based column index.
const MaxColumnIndex = math.MaxInt32 - 1

// addressRe matches the accepted address shape: letters then digits.
var addressRe = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// Coord is a zero-based grid coordinate.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Valid reports whether c addresses a supported cell.
func (c Coord) Valid() bool {
	return c.Row >= 0 && c.Row <= MaxRowIndex && c.Col >= 0 && c.Col <= MaxColumnIndex
}

// String returns the canonical address for c, or "" if c is not valid.
func (c Coord) String() string {
	s, err := Format(c)
	if err != nil {
		return ""
	}
	return s
}

// Parse converts a textual address into a coordinate.
//
// The row comes from the letter block and the column from the digit block,
// which must be a positive integer. Multi-letter row prefixes are rejected
// with ErrCodeUnsupportedRow; every other malformed input yields
// ErrCodeInvalidAddress.
func Parse(s string) (Coord, error) {
	m := addressRe.FindStringSubmatch(s)
	if m == nil {
		return Coord{}, errors.New(errors.ErrCodeInvalidAddress, "invalid grid address: %q", s)
	}
	letters, digits := m[1], m[2]

	if len(letters) > 1 {
		return Coord{}, errors.New(errors.ErrCodeUnsupportedRow,
			"row %q is not supported (rows are single letters A-Z)", strings.ToUpper(letters))
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return Coord{}, errors.Wrap(errors.ErrCodeInvalidAddress, err, "invalid column in %q", s)
	}
	if n < 1 {
		return Coord{}, errors.New(errors.ErrCodeInvalidAddress, "column must be at least 1 in %q", s)
	}
	if n-1 > MaxColumnIndex {
		return Coord{}, errors.New(errors.ErrCodeInvalidAddress, "column too large in %q", s)
	}

	row, _ := RowIndex(letters)
	return Coord{Row: row, Col: n - 1}, nil
}

// Format converts a coordinate into its canonical address.
func Format(c Coord) (string, error) {
	if c.Row < 0 || c.Row > MaxRowIndex {
		return "", errors.New(errors.ErrCodeOutOfRange, "row index %d outside 0..%d", c.Row, MaxRowIndex)
	}
	if c.Col < 0 || c.Col > MaxColumnIndex {
		return "", errors.New(errors.ErrCodeOutOfRange, "column index %d outside 0..%d", c.Col, MaxColumnIndex)
	}
	return string(rune('A'+c.Row)) + strconv.Itoa(c.Col+1), nil
}

// Normalize returns the canonical form of a valid address.
func Normalize(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(c)
}

// MustParse is like Parse but panics on error. It is intended for tests and
// static fixtures.
func MustParse(s string) Coord {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// RowIndex maps a single row letter (either case) to its zero-based index.
func RowIndex(letter string) (int, error) {
	if len(letter) != 1 {
		return 0, errors.New(errors.ErrCodeInvalidLetter, "row letter must be a single character, got %q", letter)
	}
	ch := letter[0]
	switch {
	case ch >= 'A' && ch <= 'Z':
		return int(ch - 'A'), nil
	case ch >= 'a' && ch <= 'z':
		return int(ch - 'a'), nil
	}
	return 0, errors.New(errors.ErrCodeInvalidLetter, "row letter must be A-Z, got %q", letter)
}

// Letter returns the uppercase letter for a zero-based row index.
func Letter(row int) (string, error) {
	if row < 0 || row > MaxRowIndex {
		return "", errors.New(errors.ErrCodeOutOfRange, "row index %d outside 0..%d", row, MaxRowIndex)
	}
	return string(rune('A' + row)), nil
}

// LeadingRow returns the row index named by the first character of s, if
// that character is a letter. The rest of s is ignored, which lets callers
// recover the intended swimlane from an address whose column no longer
// exists (or was never valid).
func LeadingRow(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	row, err := RowIndex(s[:1])
	if err != nil {
		return 0, false
	}
	return row, true
}
