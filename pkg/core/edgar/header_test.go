package edgar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appleHeader = `<SEC-DOCUMENT>0000320193-20-000096.txt : 20201030
<SEC-HEADER>0000320193-20-000096.hdr.sgml : 20201030
<ACCEPTANCE-DATETIME>20201029180625
ACCESSION NUMBER:		0000320193-20-000096
CONFORMED SUBMISSION TYPE:	10-K
PUBLIC DOCUMENT COUNT:		92
CONFORMED PERIOD OF REPORT:	20200926
FILED AS OF DATE:		20201030
DATE AS OF CHANGE:		20201029

FILER:

	COMPANY DATA:
		COMPANY CONFORMED NAME:			Apple Inc.
		CENTRAL INDEX KEY:			0000320193
		STANDARD INDUSTRIAL CLASSIFICATION:	ELECTRONIC COMPUTERS [3571]
		IRS NUMBER:				942404110
		FISCAL YEAR END:			0926

	FILING VALUES:
		FORM TYPE:		10-K
		SEC ACT:		1934 Act
		SEC FILE NUMBER:	001-36743
		FILM NUMBER:		201273977
</SEC-HEADER>
`

func TestExtractHeader(t *testing.T) {
	h := ExtractHeader(appleHeader)

	assert.Equal(t, "0000320193-20-000096", h.AccessionNumber)
	assert.Equal(t, "2020-09-26", h.ConformedPeriodOfReport)
	assert.Equal(t, "2020-10-30", h.FiledAsOfDate)
	assert.Equal(t, "2020-10-29", h.DateAsOfChange)
	assert.Empty(t, h.EffectivenessDate)

	assert.Equal(t, "Apple Inc.", h.Filer.CompanyData.CompanyConformedName)
	assert.Equal(t, "0000320193", h.Filer.CompanyData.CentralIndexKey)
	assert.Equal(t, "ELECTRONIC COMPUTERS [3571]", h.Filer.CompanyData.StandardIndustrialClassification)
	assert.Equal(t, "942404110", h.Filer.CompanyData.IRSNumber)
	assert.Equal(t, "0926", h.Filer.CompanyData.FiscalYearEnd)

	assert.Equal(t, "10-K", h.Filer.FilingValues.FormType)
	assert.Equal(t, "1934 Act", h.Filer.FilingValues.Act)
	assert.Equal(t, "001-36743", h.Filer.FilingValues.FileNumber)
	assert.Equal(t, "201273977", h.Filer.FilingValues.FilmNumber)

	assert.Equal(t, "10-K", h.FormType)
	assert.Equal(t, "0000320193", h.CIK)
}

func TestExtractHeader_OnlyLooksAtPreamble(t *testing.T) {
	bundle := strings.Repeat("x", HeaderWindow) + "\nACCESSION NUMBER: 0000000001-20-000001\n"
	h := ExtractHeader(bundle)
	assert.Empty(t, h.AccessionNumber)
}

func TestExtractHeader_WindowCountsCharacters(t *testing.T) {
	bundle := strings.Repeat("é", 1500) + "\nFORM TYPE:\t\t10-K\n"
	require.Greater(t, len(bundle), HeaderWindow)

	h := ExtractHeader(bundle)
	assert.Equal(t, "10-K", h.FormType)

	assert.Equal(t, "hé", runePrefix("héllo", 2))
	assert.Equal(t, "héllo", runePrefix("héllo", 10))
	assert.Equal(t, "", runePrefix("héllo", 0))
}

func TestExtractHeader_NoFilerBlock(t *testing.T) {
	h := ExtractHeader("ACCESSION NUMBER: 1-2-3\n")
	assert.Equal(t, "1-2-3", h.AccessionNumber)
	assert.Empty(t, h.FormType)
	assert.Empty(t, h.CIK)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"20200926", "2020-09-26"},
		{"2020XXXX", "2020XXXX"},
		{"20201345", "20201345"},
		{"2020-09-26", "2020-09-26"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestSniffFilingDate(t *testing.T) {
	tests := []struct {
		name   string
		head   string
		want   string
		wantOK bool
	}{
		{"filed as of date", appleHeader, "2020-10-30", true},
		{"sec header line", "<SEC-HEADER>0000320193-20-000096.hdr.sgml : 20201030\n", "2020-10-30", true},
		{"filing date label", "Filing-Date: 20190115", "2019-01-15", true},
		{"nothing usable", "<html>no header</html>", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SniffFilingDate(tt.head)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format(time.DateOnly))
			}
		})
	}
}

func TestSniffAccession(t *testing.T) {
	tests := []struct {
		name string
		head string
		path string
		want string
	}{
		{"header field", appleHeader, "/x/y.txt", "0000320193-20-000096"},
		{"sec header prefix", "<SEC-HEADER>0000789019-21-000030.hdr.sgml : 20210729", "/x/y.txt", "0000789019-21-000030"},
		{"file name fallback", "no header", "/data/AAPL/10-K/0000320193-19-000119.txt", "0000320193-19-000119"},
		{"none", "no header", "/data/AAPL/10-K/full-submission.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffAccession(tt.head, tt.path))
		})
	}
}
