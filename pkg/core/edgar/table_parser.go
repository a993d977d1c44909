package edgar

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML caps colspan at 1000; larger values are clamped the same way.
const maxColSpan = 1000

// parseTable flattens a <table> into rows of cell text. A cell spanning K
// columns contributes its text followed by K-1 empty cells, so columns stay
// aligned. Rows of nested tables are left to those tables. The result is
// rectangular; a table without cells yields nil.
func parseTable(table *goquery.Selection) [][]string {
	var rows [][]string

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}

		var row []string
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			colspan, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("colspan", "1")))
			if err != nil || colspan < 1 {
				colspan = 1
			}
			if colspan > maxColSpan {
				colspan = maxColSpan
			}

			row = append(row, nodeText(cell.Get(0)))
			for i := 1; i < colspan; i++ {
				row = append(row, "")
			}
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	return padRows(rows)
}

// padRows right-pads every row with empty cells to the widest row.
func padRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			rows[i] = padded
		}
	}
	return rows
}
