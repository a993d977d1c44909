package edgar

import (
	"path/filepath"
	"regexp"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"
)

const (
	// HeaderWindow is how many characters of a bundle the header extractor looks at.
	HeaderWindow = 2000
	// SniffWindow is how much of a file the catalog reads to date it.
	SniffWindow = 10000
)

type headerField struct {
	pattern *regexp.Regexp
	date    bool
	set     func(h *models.HeaderMetadata, v string)
}

var headerFields = []headerField{
	{regexp.MustCompile(`ACCESSION NUMBER:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.AccessionNumber = v }},
	{regexp.MustCompile(`CONFORMED PERIOD OF REPORT:\s+(\S+)`), true,
		func(h *models.HeaderMetadata, v string) { h.ConformedPeriodOfReport = v }},
	{regexp.MustCompile(`FILED AS OF DATE:\s+(\S+)`), true,
		func(h *models.HeaderMetadata, v string) { h.FiledAsOfDate = v }},
	{regexp.MustCompile(`DATE AS OF CHANGE:\s+(\S+)`), true,
		func(h *models.HeaderMetadata, v string) { h.DateAsOfChange = v }},
	{regexp.MustCompile(`EFFECTIVENESS DATE:\s+(\S+)`), true,
		func(h *models.HeaderMetadata, v string) { h.EffectivenessDate = v }},

	// filer / company data
	{regexp.MustCompile(`(?m)COMPANY CONFORMED NAME:\s+(.+?)\s*$`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.CompanyData.CompanyConformedName = v }},
	{regexp.MustCompile(`CENTRAL INDEX KEY:\s+(\d+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.CompanyData.CentralIndexKey = v }},
	{regexp.MustCompile(`(?m)STANDARD INDUSTRIAL CLASSIFICATION:\s+(.+?)\s*$`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.CompanyData.StandardIndustrialClassification = v }},
	{regexp.MustCompile(`IRS NUMBER:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.CompanyData.IRSNumber = v }},
	{regexp.MustCompile(`FISCAL YEAR END:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.CompanyData.FiscalYearEnd = v }},

	// filer / filing values
	{regexp.MustCompile(`FORM TYPE:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.FilingValues.FormType = v }},
	{regexp.MustCompile(`(?m)\bACT:\s+(.+?)\s*$`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.FilingValues.Act = v }},
	{regexp.MustCompile(`FILE NUMBER:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.FilingValues.FileNumber = v }},
	{regexp.MustCompile(`FILM NUMBER:\s+(\S+)`), false,
		func(h *models.HeaderMetadata, v string) { h.Filer.FilingValues.FilmNumber = v }},
}

// ExtractHeader reads the labeled preamble fields of a bundle.
func ExtractHeader(bundle string) models.HeaderMetadata {
	head := runePrefix(bundle, HeaderWindow)

	var h models.HeaderMetadata
	for _, f := range headerFields {
		m := f.pattern.FindStringSubmatch(head)
		if m == nil {
			continue
		}
		v := m[1]
		if f.date {
			v = NormalizeDate(v)
		}
		f.set(&h, v)
	}

	h.FormType = h.Filer.FilingValues.FormType
	h.CIK = h.Filer.CompanyData.CentralIndexKey
	return h
}

// runePrefix returns the first n characters of s.
func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// NormalizeDate turns YYYYMMDD into YYYY-MM-DD and leaves anything else untouched.
func NormalizeDate(v string) string {
	if len(v) != 8 {
		return v
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return v
	}
	return t.Format(models.DateLayout)
}

// =============================================================================
// CATALOG SNIFFING
// =============================================================================

var (
	filingDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`FILED AS OF DATE:\s*(\d{8})`),
		regexp.MustCompile(`<SEC-HEADER>[^:]+:\s*(\d{8})`),
		regexp.MustCompile(`(?i)FILING[- ]DATE:\s*(\d{8})`),
	}
	accessionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ACCESSION[ -]NUMBER:\s*(\d+-\d+-\d+)`),
		regexp.MustCompile(`<SEC-HEADER>(\d+-\d+-\d+)`),
	}
	accessionInName = regexp.MustCompile(`(\d+-\d+-\d+)`)
)

// SniffFilingDate finds the filing date in the head of a bundle.
func SniffFilingDate(head string) (time.Time, bool) {
	for _, re := range filingDatePatterns {
		m := re.FindStringSubmatch(head)
		if m == nil {
			continue
		}
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SniffAccession finds the accession number in the head of a bundle, falling
// back to the file name.
func SniffAccession(head, path string) string {
	for _, re := range accessionPatterns {
		if m := re.FindStringSubmatch(head); m != nil {
			return m[1]
		}
	}
	if m := accessionInName.FindStringSubmatch(filepath.Base(path)); m != nil {
		return m[1]
	}
	return ""
}
