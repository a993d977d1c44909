package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Balance Sheet", "Balance_Sheet"},
		{"table_3", "table_3"},
		{"Cash (in $M)", "Cash__in__M_"},
		{"", ""},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeName(tt.label))
		})
	}

	assert.Equal(t, "Balance_Sheet_1.csv", TableFileName("Balance Sheet", 0, "table"))
	assert.Equal(t, "text_table_4.csv", TableFileName("", 3, "text_table"))
}

func TestHasHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want bool
	}{
		{name: "labels", rows: [][]string{{"Item", "2023", "Total"}, {"Cash", "1", "2"}}, want: false},
		{name: "all text", rows: [][]string{{"Item", "FY", ""}, {"Cash", "1", "2"}}, want: true},
		{name: "single row", rows: [][]string{{"Item", "Value"}}, want: false},
		{name: "money cell", rows: [][]string{{"Item", "$1,200"}, {"a", "b"}}, want: false},
		{name: "negative in parens", rows: [][]string{{"(45)", "x"}, {"a", "b"}}, want: false},
		{name: "percent", rows: [][]string{{"12%", "x"}, {"a", "b"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasHeaderRow(tt.rows))
		})
	}
}

func TestCSVRows(t *testing.T) {
	withHeader := models.TableRecord{Rows: [][]string{{"Item", "Amount"}, {"Cash", "100"}}}
	assert.Equal(t, withHeader.Rows, CSVRows(withHeader))

	numeric := models.TableRecord{Rows: [][]string{{"2022", "2023"}, {"1", "2"}}}
	assert.Equal(t, [][]string{{"0", "1"}, {"2022", "2023"}, {"1", "2"}}, CSVRows(numeric))
}

func sampleResult() *models.ParseResult {
	res := &models.ParseResult{
		Tables: []models.TableRecord{
			{Label: "Balance Sheet", Rows: [][]string{{"Item", "Amount"}, {"Cash", "100"}}},
			{Rows: [][]string{{"1", "2"}, {"3", "4"}}},
			{Label: "empty"},
		},
		TextTables: []models.TableRecord{
			{Label: "Selected Data", Rows: [][]string{{"Revenue", "10", "20"}, {"Income", "1", "2"}}},
		},
		Sections: []models.SectionRecord{
			{UUID: "u-1", SectionNumber: 1, Title: "Item 1. Business", Level: 1, Content: "We sell *things*.", DocumentType: "10-K"},
			{UUID: "u-2", SectionNumber: 2, Title: "Risk Factors", Level: 2, ParentTitle: "Item 1. Business", Content: "Many."},
		},
	}
	res.Metadata.Ticker = "AAPL"
	res.Metadata.FormType = "10-K"
	res.Metadata.AccessionNumber = "0000320193-23-000106"
	res.Metadata.Filer.CompanyData.CompanyConformedName = "Apple Inc."
	res.Metadata.DetectedEncoding = "utf-8"
	res.Metadata.DocumentTypes = []string{"10-K"}
	res.Metadata.TablesCount = 3
	res.Metadata.SectionsCount = 2
	return res
}

func TestWriter_Write(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root, zaptest.NewLogger(t))

	dir, err := w.Write("/data/AAPL/10-K/0000320193-23-000106.txt", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "AAPL", "0000320193-23-000106"), dir)

	assert.FileExists(t, filepath.Join(dir, "tables", "Balance_Sheet_1.csv"))
	assert.FileExists(t, filepath.Join(dir, "tables", "table_2.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "tables", "empty_3.csv"))
	assert.FileExists(t, filepath.Join(dir, "text_tables", "Selected_Data_1.csv"))

	f, err := os.Open(filepath.Join(dir, "tables", "table_2.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "1"}, {"1", "2"}, {"3", "4"}}, records)

	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "AAPL", meta["ticker"])
	assert.Equal(t, "0000320193-23-000106", meta["accession_number"])
	assert.Equal(t, "utf-8", meta["detected_encoding"])
	assert.EqualValues(t, 2, meta["sections_count"])

	raw, err = os.ReadFile(filepath.Join(dir, "sections", "all_sections.json"))
	require.NoError(t, err)
	var sections []models.SectionRecord
	require.NoError(t, json.Unmarshal(raw, &sections))
	require.Len(t, sections, 2)
	assert.Equal(t, "Item 1. Business", sections[1].ParentTitle)

	assert.FileExists(t, filepath.Join(dir, "sections", "section_u-1.json"))
	assert.FileExists(t, filepath.Join(dir, "sections", "section_u-2.json"))

	md, err := os.ReadFile(filepath.Join(dir, "sections", "sections.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Apple Inc. 10-K")
	assert.Contains(t, string(md), "## 1. Item 1. Business")
	assert.Contains(t, string(md), "### 2. Risk Factors")
	assert.Contains(t, string(md), `We sell \*things\*.`)

	page, err := os.ReadFile(filepath.Join(dir, "sections", "sections.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Apple Inc. 10-K</title>")
	assert.Contains(t, string(page), "<h3>2. Risk Factors</h3>")
	assert.Contains(t, string(page), "We sell *things*.")
}

func TestWriter_NoSections(t *testing.T) {
	w := NewWriter(t.TempDir(), nil)
	res := &models.ParseResult{}
	dir, err := w.Write("bundle.txt", res)
	require.NoError(t, err)
	assert.Equal(t, "unknown", filepath.Base(filepath.Dir(dir)))

	raw, err := os.ReadFile(filepath.Join(dir, "sections", "all_sections.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestSummaryRoundTrip(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadSummary(dir)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := &models.BatchSummary{
		TotalFiles: 2, Successful: 1, Failed: 1,
		Results: []models.FileResult{
			{File: "a.txt", Ticker: "AAPL", Status: StatusSuccess},
			{File: "b.txt", Status: StatusFailed, Error: "boom"},
		},
	}
	require.NoError(t, WriteSummary(dir, s))

	got, err = LoadSummary(dir)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, map[string]bool{"a.txt": true}, SucceededFiles(got))
}

func TestLoadSummary_RepairsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	truncated := `{
    "total_files": 3,
    "successful": 3,
    "failed": 0,
    "results": [
        {"file": "a.txt", "status": "success"},
        {"file": "b.txt", "status": "failed", "error": "x"},
        {"file": "c.txt", "sta`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SummaryFile), []byte(truncated), 0o644))

	got, err := LoadSummary(dir)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TotalFiles)
	assert.Equal(t, 1, got.Successful)
	assert.True(t, SucceededFiles(got)["a.txt"])
	assert.False(t, SucceededFiles(got)["b.txt"])
}
