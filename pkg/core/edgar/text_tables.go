package edgar

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"
)

const (
	// A text table ends after this many consecutive blank or short lines.
	textTableEndGap = 2
	// Lines shorter than this (after trimming) count toward the end gap.
	shortLineRunes = 4
	// Text tables need more than this many rows to be kept.
	minTextTableRows = 2
	// Look back this many lines for a title when a table starts without one.
	titleLookback = 5
)

var (
	wideGap   = regexp.MustCompile(`\s{2,}`)
	widerGap  = regexp.MustCompile(`\s{3,}`)
	lineSplit = regexp.MustCompile(`\r?\n`)
)

// ExtractTextTables finds tables laid out with spaces, pipes or commas in plain text.
func (e *TableExtractor) ExtractTextTables(body string) []models.TableRecord {
	lines := lineSplit.Split(body, -1)

	var (
		tables  []models.TableRecord
		current [][]string
		label   string
		inTable bool
		gap     int
	)

	flush := func() {
		if len(current) > minTextTableRows {
			if label == "" {
				label = fmt.Sprintf("text_table_%d", len(tables)+1)
			}
			tables = append(tables, models.TableRecord{Label: label, Rows: padRows(current)})
		}
		current, label, inTable, gap = nil, "", false, 0
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if e.profiles.textKeywordIn(trimmed) {
			if inTable {
				flush()
			}
			label = trimmed
			inTable = true
			gap = 0
		}

		if e.profiles.isTextTableLine(line) {
			if cells := splitTextRow(line); len(cells) > 1 {
				if !inTable {
					inTable = true
					if label == "" {
						label = lookBackTitle(lines, i)
					}
				}
				current = append(current, cells)
				gap = 0
				continue
			}
		}

		if !inTable {
			continue
		}
		if utf8.RuneCountInString(trimmed) < shortLineRunes {
			gap++
			if gap >= textTableEndGap {
				flush()
			}
			continue
		}
		// A long line that is not table shaped keeps the table open; it is
		// kept as a row only when it splits into about as many cells.
		if len(current) > 0 {
			if cells := splitTextRow(line); len(cells) > 1 && len(cells) >= len(current[0])-2 {
				current = append(current, cells)
			}
		}
		gap = 0
	}
	if inTable {
		flush()
	}
	return tables
}

// splitTextRow splits a plain-text table line into trimmed, non-empty cells.
func splitTextRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if strings.Contains(trimmed, "|") {
		return nonEmpty(strings.Split(trimmed, "|"))
	}
	if cells := nonEmpty(wideGap.Split(trimmed, -1)); len(cells) > 1 {
		return cells
	}
	if strings.Count(trimmed, ",") > 1 {
		parts := strings.Split(trimmed, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nonEmpty(widerGap.Split(trimmed, -1))
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookBackTitle(lines []string, i int) string {
	start := i - titleLookback
	if start < 0 {
		start = 0
	}
	for j := start; j < i; j++ {
		t := strings.TrimSpace(lines[j])
		if t != "" && utf8.RuneCountInString(t) < 100 {
			return t
		}
	}
	return ""
}
