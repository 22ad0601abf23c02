package layout

import "strings"

// Grid is a block of spreadsheet cells as fetched from a published
// sheet. Rows may be ragged; any read outside the grid resolves to an
// empty string, so callers never need to bounds-check.
type Grid [][]string

// Spreadsheet error values are indistinguishable from garbage for our
// purposes, so they are blanked at read time.
var errorTokens = map[string]struct{}{
	"#N/A":    {},
	"#REF!":   {},
	"#VALUE!": {},
	"#DIV/0!": {},
	"#NAME?":  {},
	"#NULL!":  {},
	"#NUM!":   {},
	"#ERROR!": {},
}

// IsErrorToken reports whether the cell holds a spreadsheet error
// value such as #N/A or #REF!.
func IsErrorToken(cell string) bool {
	_, ok := errorTokens[strings.ToUpper(strings.TrimSpace(cell))]
	return ok
}

// Cell returns the trimmed value at (row, col). Out-of-bounds reads
// and spreadsheet error tokens both come back as "".
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	v := strings.TrimSpace(r[col])
	if IsErrorToken(v) {
		return ""
	}
	return v
}
