package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/akulinich/overdraft/layout"
)

// ParseCSV reads a whole exported sheet into a grid. Rows keep their
// original widths; the decoder treats missing trailing cells as blank,
// so there is no need to pad here.
func ParseCSV(r io.Reader) (layout.Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	grid := layout.Grid{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", len(grid)+1, err)
		}
		grid = append(grid, record)
	}
	return grid, nil
}
