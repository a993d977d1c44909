// Package export writes parse results to disk: CSV tables, JSON metadata and
// sections, a Markdown/HTML section report and the batch summary.
package export

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
)

const maxNameLen = 50

// SafeName keeps letters, digits, '-' and '_' from label, replaces anything
// else with '_' and truncates the result to 50 characters.
func SafeName(label string) string {
	var b strings.Builder
	n := 0
	for _, r := range label {
		if n == maxNameLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

// TableFileName names the i-th (0-based) table of a bundle.
func TableFileName(label string, i int, fallback string) string {
	if name := SafeName(label); name != "" {
		return name + "_" + strconv.Itoa(i+1) + ".csv"
	}
	return fallback + "_" + strconv.Itoa(i+1) + ".csv"
}

// HasHeaderRow reports whether the first row reads as column headers: the
// table has more than one row and no cell of the first row is a number.
func HasHeaderRow(rows [][]string) bool {
	if len(rows) < 2 {
		return false
	}
	for _, cell := range rows[0] {
		if isNumeric(cell) {
			return false
		}
	}
	return true
}

func isNumeric(cell string) bool {
	s := strings.TrimSpace(cell)
	s = strings.TrimPrefix(s, "$")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// CSVRows returns the records written for a table. Without a header row,
// numbered column headers are prepended.
func CSVRows(t models.TableRecord) [][]string {
	if len(t.Rows) == 0 || HasHeaderRow(t.Rows) {
		return t.Rows
	}
	header := make([]string, t.Width())
	for i := range header {
		header[i] = strconv.Itoa(i)
	}
	return append([][]string{header}, t.Rows...)
}

// WriteTableCSV writes one table to path.
func WriteTableCSV(path string, t models.TableRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(CSVRows(t)); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
