package ingest

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
)

// Old-style .xls workbooks top out well below this for statement exports.
const maxWorkbookRows = 10000

// readWorkbook flattens the first sheet of an .xls workbook into rows of
// cells. The first row is expected to be the header, same as CSV.
func readWorkbook(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	rows := workbook.ReadAllCells(maxWorkbookRows)
	var out [][]string
	for _, row := range rows {
		empty := true
		for _, cell := range row {
			if cell != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}
