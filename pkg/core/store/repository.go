package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
)

// CatalogRepository persists FilingRecords. Implementations are not required
// to serialize writers themselves; the catalog tracker does that.
type CatalogRepository interface {
	// FindByPath returns the record for a file path or an ErrNotFound error.
	FindByPath(ctx context.Context, path string) (*models.FilingRecord, error)
	// Insert adds a new record and returns its id.
	Insert(ctx context.Context, rec *models.FilingRecord) (int64, error)
	// UpdateMetadata rewrites the header-derived fields of a record.
	UpdateMetadata(ctx context.Context, id int64, filingDate time.Time, accession string) error
	// Query returns matching records ordered by filing date, newest first.
	Query(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error)
	// SetParseState updates the record selected by ref and returns the number
	// of rows changed.
	SetParseState(ctx context.Context, ref models.FilingRef, state ParseState) (int64, error)
	// Stats summarizes every record in the catalog.
	Stats(ctx context.Context) (*models.CatalogStats, error)
	Close() error
}

// ParseState is the parse-related column set written by SetParseState.
// A nil Date and empty Status clear the columns.
type ParseState struct {
	Parsed bool
	Status models.ParseStatus
	Date   *time.Time
}

// ===== SHARED SQL =====

// Schema statements use %s for the dialect-specific column types.
const (
	createFilingsTable = `CREATE TABLE IF NOT EXISTS filings (
	id %s,
	ticker TEXT NOT NULL,
	filing_type TEXT NOT NULL,
	filing_date %s NOT NULL,
	file_path TEXT NOT NULL UNIQUE,
	accession_number TEXT,
	download_date %s NOT NULL,
	parsed %s NOT NULL DEFAULT %s,
	parse_date %s,
	parse_status TEXT
)`
	selectColumns = `id, ticker, filing_type, filing_date, file_path, accession_number,
	download_date, parsed, parse_date, parse_status`
)

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_filing_lookup ON filings (ticker, filing_type, filing_date)`,
	`CREATE INDEX IF NOT EXISTS idx_parse_status ON filings (parsed)`,
	`CREATE INDEX IF NOT EXISTS idx_accession ON filings (accession_number)`,
	`CREATE INDEX IF NOT EXISTS idx_file_path ON filings (file_path)`,
}

// dialect covers the differences between the SQLite and Postgres backends.
type dialect struct {
	placeholder func(n int) string
	date        func(t time.Time) any
}

// sqlBuilder accumulates a WHERE clause with numbered arguments.
type sqlBuilder struct {
	d     dialect
	conds []string
	args  []any
}

func (b *sqlBuilder) where(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(cond, b.d.placeholder(len(b.args))))
}

func (b *sqlBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func buildQuery(d dialect, f models.FilingFilter) (string, []any) {
	b := &sqlBuilder{d: d}
	if f.Ticker != "" {
		b.where("ticker = %s", f.Ticker)
	}
	if f.FilingType != "" {
		b.where("filing_type = %s", f.FilingType)
	}
	if !f.Start.IsZero() {
		b.where("filing_date >= %s", d.date(f.Start))
	}
	if !f.End.IsZero() {
		b.where("filing_date <= %s", d.date(f.End))
	}
	if f.Parsed != nil {
		b.where("parsed = %s", *f.Parsed)
	}

	q := "SELECT " + selectColumns + " FROM filings" + b.clause() + " ORDER BY filing_date DESC, id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return q, b.args
}

// refClause resolves a FilingRef to a WHERE clause: id first, then
// ticker+accession, then path.
func refClause(d dialect, ref models.FilingRef, firstArg int) (string, []any, error) {
	switch {
	case ref.ID > 0:
		return "id = " + d.placeholder(firstArg), []any{ref.ID}, nil
	case ref.Ticker != "" && ref.Accession != "":
		return "ticker = " + d.placeholder(firstArg) + " AND accession_number = " + d.placeholder(firstArg+1),
			[]any{ref.Ticker, ref.Accession}, nil
	case ref.Path != "":
		return "file_path = " + d.placeholder(firstArg), []any{ref.Path}, nil
	}
	return "", nil, eris.Wrap(models.ErrInvalidInput, "store: filing reference has no identifier")
}

func buildSetParseState(d dialect, ref models.FilingRef, state ParseState) (string, []any, error) {
	where, whereArgs, err := refClause(d, ref, 4)
	if err != nil {
		return "", nil, err
	}
	var status any
	if state.Status != "" {
		status = string(state.Status)
	}
	var date any
	if state.Date != nil {
		date = *state.Date
	}
	q := fmt.Sprintf("UPDATE filings SET parsed = %s, parse_date = %s, parse_status = %s WHERE %s",
		d.placeholder(1), d.placeholder(2), d.placeholder(3), where)
	return q, append([]any{state.Parsed, date, status}, whereArgs...), nil
}

// computeStats folds a full record listing into CatalogStats. A missing
// parse status is reported as unknown.
func computeStats(records []models.FilingRecord) *models.CatalogStats {
	stats := &models.CatalogStats{
		Total:    len(records),
		ByTicker: lo.CountValuesBy(records, func(r models.FilingRecord) string { return r.Ticker }),
		ByType:   lo.CountValuesBy(records, func(r models.FilingRecord) string { return r.FilingType }),
		ByParseStatus: lo.CountValuesBy(records, func(r models.FilingRecord) string {
			if r.ParseStatus == "" {
				return string(models.ParseUnknown)
			}
			return string(r.ParseStatus)
		}),
	}
	stats.Parsed = lo.CountBy(records, func(r models.FilingRecord) bool { return r.Parsed })
	stats.Unparsed = stats.Total - stats.Parsed

	if len(records) > 0 {
		earliest := lo.MinBy(records, func(a, b models.FilingRecord) bool { return a.FilingDate.Before(b.FilingDate) }).FilingDate
		latest := lo.MaxBy(records, func(a, b models.FilingRecord) bool { return a.FilingDate.After(b.FilingDate) }).FilingDate
		stats.EarliestFiling, stats.LatestFiling = &earliest, &latest
	}
	return stats
}

func validateRecord(rec *models.FilingRecord) error {
	if rec == nil || rec.Ticker == "" || rec.FilingType == "" || rec.FilePath == "" {
		return eris.Wrap(models.ErrInvalidInput, "store: record needs ticker, filing type and path")
	}
	if rec.FilingDate.IsZero() {
		return eris.Wrapf(models.ErrNoFilingDate, "store: record %s", rec.FilePath)
	}
	return nil
}
