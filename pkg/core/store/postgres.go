package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PostgresCatalog stores the catalog in a shared Postgres database.
type PostgresCatalog struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	date:        func(t time.Time) any { return t },
}

// OpenPostgres connects with the given DATABASE_URL and applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string, log *zap.Logger) (*PostgresCatalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if databaseURL == "" {
		return nil, eris.Wrap(models.ErrInvalidInput, "store: database url is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse database config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}

	c := &PostgresCatalog{pool: pool, log: log}
	if err := c.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("store: postgres catalog ready", zap.String("host", config.ConnConfig.Host))
	return c, nil
}

func (c *PostgresCatalog) initSchema(ctx context.Context) error {
	stmts := append([]string{
		fmt.Sprintf(createFilingsTable, "BIGSERIAL PRIMARY KEY", "DATE", "TIMESTAMPTZ", "BOOLEAN", "FALSE", "TIMESTAMPTZ"),
	}, indexStatements...)
	for _, s := range stmts {
		if _, err := c.pool.Exec(ctx, s); err != nil {
			return eris.Wrap(err, "store: apply postgres schema")
		}
	}
	return nil
}

// Close closes the connection pool.
func (c *PostgresCatalog) Close() error {
	c.pool.Close()
	return nil
}

func (c *PostgresCatalog) FindByPath(ctx context.Context, path string) (*models.FilingRecord, error) {
	row := c.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM filings WHERE file_path = $1", path)
	rec, err := scanPostgres(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(models.ErrNotFound, "store: no record for %s", path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: find by path")
	}
	return rec, nil
}

func (c *PostgresCatalog) Insert(ctx context.Context, rec *models.FilingRecord) (int64, error) {
	if err := validateRecord(rec); err != nil {
		return 0, err
	}
	var accession *string
	if rec.AccessionNumber != "" {
		accession = &rec.AccessionNumber
	}
	var id int64
	err := c.pool.QueryRow(ctx,
		`INSERT INTO filings (ticker, filing_type, filing_date, file_path, accession_number, download_date, parsed)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		 RETURNING id`,
		rec.Ticker, rec.FilingType, rec.FilingDate, rec.FilePath, accession, rec.DownloadDate).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: insert %s", rec.FilePath)
	}
	return id, nil
}

func (c *PostgresCatalog) UpdateMetadata(ctx context.Context, id int64, filingDate time.Time, accession string) error {
	var acc *string
	if accession != "" {
		acc = &accession
	}
	_, err := c.pool.Exec(ctx,
		"UPDATE filings SET filing_date = $1, accession_number = COALESCE($2, accession_number) WHERE id = $3",
		filingDate, acc, id)
	return eris.Wrapf(err, "store: update filing %d", id)
}

func (c *PostgresCatalog) Query(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error) {
	q, args := buildQuery(postgresDialect, filter)
	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: query filings")
	}
	defer rows.Close()

	var out []models.FilingRecord
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan filing")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate filings")
}

func (c *PostgresCatalog) SetParseState(ctx context.Context, ref models.FilingRef, state ParseState) (int64, error) {
	q, args, err := buildSetParseState(postgresDialect, ref, state)
	if err != nil {
		return 0, err
	}
	tag, err := c.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, eris.Wrap(err, "store: set parse state")
	}
	return tag.RowsAffected(), nil
}

func (c *PostgresCatalog) Stats(ctx context.Context) (*models.CatalogStats, error) {
	records, err := c.Query(ctx, models.FilingFilter{})
	if err != nil {
		return nil, err
	}
	return computeStats(records), nil
}

func scanPostgres(row pgx.Row) (*models.FilingRecord, error) {
	var (
		rec       models.FilingRecord
		accession *string
		status    *string
	)
	if err := row.Scan(&rec.ID, &rec.Ticker, &rec.FilingType, &rec.FilingDate, &rec.FilePath, &accession,
		&rec.DownloadDate, &rec.Parsed, &rec.ParseDate, &status); err != nil {
		return nil, err
	}
	if accession != nil {
		rec.AccessionNumber = *accession
	}
	if status != nil {
		rec.ParseStatus = models.ParseStatus(*status)
	}
	return &rec, nil
}
