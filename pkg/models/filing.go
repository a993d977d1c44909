package models

import (
	"time"
)

// DateLayout is the civil date format used for filing dates in the catalog and exports.
const DateLayout = "2006-01-02"

// ParseStatus records the outcome of the last parse of a cataloged filing.
type ParseStatus string

const (
	ParseSuccess ParseStatus = "success"
	ParsePartial ParseStatus = "partial"
	ParseFailed  ParseStatus = "failed"
	ParseUnknown ParseStatus = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s ParseStatus) Valid() bool {
	switch s {
	case ParseSuccess, ParsePartial, ParseFailed, ParseUnknown:
		return true
	}
	return false
}

// FilingRecord is one cataloged filing bundle on local disk.
// FilePath is unique across the catalog.
type FilingRecord struct {
	ID              int64       `json:"id"`
	Ticker          string      `json:"ticker"`
	FilingType      string      `json:"filing_type"`
	FilingDate      time.Time   `json:"filing_date"`
	FilePath        string      `json:"file_path"`
	AccessionNumber string      `json:"accession_number,omitempty"`
	DownloadDate    time.Time   `json:"download_date"`
	Parsed          bool        `json:"parsed"`
	ParseDate       *time.Time  `json:"parse_date,omitempty"`
	ParseStatus     ParseStatus `json:"parse_status,omitempty"`
}

// FilingFilter narrows catalog queries. Zero values mean "no constraint".
type FilingFilter struct {
	Ticker     string
	FilingType string
	Start      time.Time
	End        time.Time
	Parsed     *bool
	Limit      int
}

// FilingRef identifies a single record for parse-state transitions.
// Resolution order: ID, then Ticker+Accession, then Path.
type FilingRef struct {
	ID        int64
	Ticker    string
	Accession string
	Path      string
}

// IsZero reports whether the reference carries no usable identifier.
func (r FilingRef) IsZero() bool {
	return r.ID == 0 && (r.Ticker == "" || r.Accession == "") && r.Path == ""
}

// MissingRange is an inclusive span of civil dates that has no local filing.
type MissingRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r MissingRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Contains reports whether d falls inside the range (inclusive).
func (r MissingRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// CatalogStats summarizes the catalog contents.
type CatalogStats struct {
	Total          int            `json:"total"`
	ByTicker       map[string]int `json:"by_ticker"`
	ByType         map[string]int `json:"by_type"`
	Parsed         int            `json:"parsed"`
	Unparsed       int            `json:"unparsed"`
	ByParseStatus  map[string]int `json:"by_parse_status"`
	EarliestFiling *time.Time     `json:"earliest_filing,omitempty"`
	LatestFiling   *time.Time     `json:"latest_filing,omitempty"`
}
