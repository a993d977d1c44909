package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteConfig holds the embedded catalog settings.
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
	WALMode     bool
}

// DefaultSQLiteConfig returns the settings used by the CLI.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{Path: path, BusyTimeout: 5 * time.Second, WALMode: true}
}

// SQLiteCatalog is the embedded catalog backend. It keeps a single
// connection open, so statements never interleave.
type SQLiteCatalog struct {
	db  *sql.DB
	log *zap.Logger
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	date:        func(t time.Time) any { return t.Format(models.DateLayout) },
}

// OpenSQLite opens (or creates) the catalog database and applies the schema.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig, log *zap.Logger) (*SQLiteCatalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, eris.Wrap(models.ErrInvalidInput, "store: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, eris.Wrap(err, "store: create catalog directory")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = " + strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10),
		"PRAGMA synchronous = NORMAL",
	}
	if cfg.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: set pragma %q", p)
		}
	}

	c := &SQLiteCatalog{db: db, log: log}
	if err := c.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("store: sqlite catalog ready", zap.String("path", cfg.Path))
	return c, nil
}

func (c *SQLiteCatalog) initSchema(ctx context.Context) error {
	stmts := append([]string{
		fmt.Sprintf(createFilingsTable, "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "TEXT", "INTEGER", "0", "TEXT"),
	}, indexStatements...)
	for _, s := range stmts {
		if _, err := c.db.ExecContext(ctx, s); err != nil {
			return eris.Wrap(err, "store: apply sqlite schema")
		}
	}
	return nil
}

// Close releases the database handle.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func (c *SQLiteCatalog) FindByPath(ctx context.Context, path string) (*models.FilingRecord, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM filings WHERE file_path = ?", path)
	rec, err := scanSQLite(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(models.ErrNotFound, "store: no record for %s", path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: find by path")
	}
	return rec, nil
}

func (c *SQLiteCatalog) Insert(ctx context.Context, rec *models.FilingRecord) (int64, error) {
	if err := validateRecord(rec); err != nil {
		return 0, err
	}
	var accession any
	if rec.AccessionNumber != "" {
		accession = rec.AccessionNumber
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO filings (ticker, filing_type, filing_date, file_path, accession_number, download_date, parsed)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		rec.Ticker, rec.FilingType, rec.FilingDate.Format(models.DateLayout), rec.FilePath, accession,
		formatTimestamp(rec.DownloadDate))
	if err != nil {
		return 0, eris.Wrapf(err, "store: insert %s", rec.FilePath)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "store: read inserted id")
	}
	return id, nil
}

func (c *SQLiteCatalog) UpdateMetadata(ctx context.Context, id int64, filingDate time.Time, accession string) error {
	var acc any
	if accession != "" {
		acc = accession
	}
	_, err := c.db.ExecContext(ctx,
		"UPDATE filings SET filing_date = ?, accession_number = COALESCE(?, accession_number) WHERE id = ?",
		filingDate.Format(models.DateLayout), acc, id)
	return eris.Wrapf(err, "store: update filing %d", id)
}

func (c *SQLiteCatalog) Query(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error) {
	q, args := buildQuery(sqliteDialect, filter)
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: query filings")
	}
	defer rows.Close()

	var out []models.FilingRecord
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan filing")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate filings")
}

func (c *SQLiteCatalog) SetParseState(ctx context.Context, ref models.FilingRef, state ParseState) (int64, error) {
	q, args, err := buildSetParseState(sqliteDialect, ref, state)
	if err != nil {
		return 0, err
	}
	if state.Date != nil {
		args[1] = formatTimestamp(*state.Date)
	}
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, eris.Wrap(err, "store: set parse state")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "store: read affected rows")
}

func (c *SQLiteCatalog) Stats(ctx context.Context) (*models.CatalogStats, error) {
	records, err := c.Query(ctx, models.FilingFilter{})
	if err != nil {
		return nil, err
	}
	return computeStats(records), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (*models.FilingRecord, error) {
	var (
		rec                        models.FilingRecord
		filingDate, downloadDate   string
		accession, parseDate, stat sql.NullString
		parsed                     int
	)
	if err := row.Scan(&rec.ID, &rec.Ticker, &rec.FilingType, &filingDate, &rec.FilePath, &accession,
		&downloadDate, &parsed, &parseDate, &stat); err != nil {
		return nil, err
	}

	var err error
	if rec.FilingDate, err = time.Parse(models.DateLayout, filingDate); err != nil {
		return nil, eris.Wrapf(err, "store: filing date of %s", rec.FilePath)
	}
	rec.DownloadDate = parseTimestamp(downloadDate)
	rec.AccessionNumber = accession.String
	rec.Parsed = parsed != 0
	rec.ParseStatus = models.ParseStatus(stat.String)
	if parseDate.Valid && parseDate.String != "" {
		t := parseTimestamp(parseDate.String)
		rec.ParseDate = &t
	}
	return &rec, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
