package parsers

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/akulinich/overdraft/layout"
)

// ParseHTML extracts the first table of a published-sheet ("pubhtml")
// page into a grid. Only <td> cells contribute; the <th> row headers
// Google adds down the left edge are dropped so column indexes line up
// with the CSV export of the same sheet.
func ParseHTML(r io.Reader) (layout.Grid, error) {
	z := html.NewTokenizer(r)
	grid := layout.Grid{}
	inTable := false
	inRow := false
	inCell := false
	var row []string
	var cell strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return grid, nil
		case html.StartTagToken:
			t := z.Token()
			switch t.Data {
			case "table":
				inTable = true
			case "tr":
				if inTable {
					inRow = true
					row = nil
				}
			case "td":
				if inRow {
					inCell = true
					cell.Reset()
				}
			}
		case html.TextToken:
			if inCell {
				cell.Write(z.Text())
			}
		case html.EndTagToken:
			t := z.Token()
			switch t.Data {
			case "td":
				if inCell {
					row = append(row, cell.String())
					inCell = false
				}
			case "tr":
				if inRow {
					grid = append(grid, row)
					inRow = false
				}
			case "table":
				if inTable {
					return grid, nil
				}
			}
		}
	}
}
