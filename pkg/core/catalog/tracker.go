// Package catalog keeps track of which filings exist on local disk, which
// date ranges are still missing, and which filings have been parsed.
package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/store"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Options tune gap detection.
type Options struct {
	GapDays    int
	ClipRanges bool
	Cadences   map[string]Cadence
}

// DefaultOptions returns a 30 day gap threshold and the default cadence map.
func DefaultOptions() Options {
	return Options{GapDays: DefaultGapDays, Cadences: DefaultCadences()}
}

// FolderResult counts what CatalogFolder did.
type FolderResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Count is the number of records added or updated.
func (r FolderResult) Count() int { return r.Added + r.Updated }

// Tracker is the only writer of the catalog. Every operation holds one
// mutex, so a single store connection is never used by two statements at once.
type Tracker struct {
	mu   sync.Mutex
	repo store.CatalogRepository
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

// NewTracker wraps a repository.
func NewTracker(repo store.CatalogRepository, opts Options, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Cadences == nil {
		opts.Cadences = DefaultCadences()
	}
	if opts.GapDays == 0 {
		opts.GapDays = DefaultGapDays
	}
	return &Tracker{repo: repo, opts: opts, log: log, now: time.Now}
}

// =============================================================================
// CATALOGING
// =============================================================================

// CatalogFile records a file that is already on disk. It is a no-op when the
// path is already cataloged. It fails with ErrNoFilingDate when the file
// header carries no filing date.
func (t *Tracker) CatalogFile(ctx context.Context, ticker, filingType, path string) (bool, error) {
	if err := requireIdentity(ticker, filingType); err != nil {
		return false, err
	}
	path, err := existingFile(path)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.repo.FindByPath(ctx, path); err == nil {
		return false, nil
	} else if !eris.Is(err, models.ErrNotFound) {
		return false, err
	}
	return true, t.insert(ctx, ticker, filingType, path)
}

// CatalogFolder catalogs every regular file in a folder. With updateExisting,
// files already cataloged get their filing date and accession re-read.
func (t *Tracker) CatalogFolder(ctx context.Context, ticker, filingType, folder string, updateExisting bool) (FolderResult, error) {
	var res FolderResult
	if err := requireIdentity(ticker, filingType); err != nil {
		return res, err
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return res, eris.Wrapf(models.ErrInvalidInput, "catalog: read folder %s: %v", folder, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path, err := filepath.Abs(filepath.Join(folder, entry.Name()))
		if err != nil {
			return res, eris.Wrap(err, "catalog: resolve path")
		}

		existing, err := t.repo.FindByPath(ctx, path)
		switch {
		case err == nil && !updateExisting:
			continue
		case err == nil:
			if err := t.refresh(ctx, existing); err != nil {
				if !eris.Is(err, models.ErrNoFilingDate) {
					return res, err
				}
				res.Skipped++
				continue
			}
			res.Updated++
		case eris.Is(err, models.ErrNotFound):
			if err := t.insert(ctx, ticker, filingType, path); err != nil {
				if !eris.Is(err, models.ErrNoFilingDate) {
					return res, err
				}
				t.log.Warn("catalog: file skipped", zap.String("path", path), zap.Error(err))
				res.Skipped++
				continue
			}
			res.Added++
		default:
			return res, err
		}
	}

	if res.Count() > 0 {
		t.log.Info("catalog: folder cataloged",
			zap.String("ticker", ticker),
			zap.String("type", filingType),
			zap.Int("added", res.Added),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped))
	}
	return res, nil
}

// SyncAll walks root/<ticker>/<type>/ and catalogs every folder it finds.
// With no tickers every directory under root is treated as a ticker.
func (t *Tracker) SyncAll(ctx context.Context, root string, tickers []string, updateExisting bool) (map[string]map[string]int, error) {
	if tickers == nil {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, eris.Wrapf(models.ErrInvalidInput, "catalog: read download folder %s: %v", root, err)
		}
		tickers = lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
			return e.Name(), e.IsDir()
		})
	}

	results := make(map[string]map[string]int, len(tickers))
	for _, ticker := range tickers {
		tickerDir := filepath.Join(root, ticker)
		types, err := os.ReadDir(tickerDir)
		if err != nil {
			t.log.Warn("catalog: ticker folder missing", zap.String("path", tickerDir))
			continue
		}
		counts := make(map[string]int)
		for _, typ := range types {
			if !typ.IsDir() {
				continue
			}
			res, err := t.CatalogFolder(ctx, ticker, typ.Name(), filepath.Join(tickerDir, typ.Name()), updateExisting)
			if err != nil {
				return results, err
			}
			counts[typ.Name()] = res.Count()
		}
		results[ticker] = counts
	}

	total := lo.SumBy(lo.Values(results), func(m map[string]int) int { return lo.Sum(lo.Values(m)) })
	t.log.Info("catalog: sync complete", zap.Int("tickers", len(results)), zap.Int("files", total))
	return results, nil
}

func (t *Tracker) insert(ctx context.Context, ticker, filingType, path string) error {
	filingDate, accession, err := sniffFile(path)
	if err != nil {
		return err
	}
	_, err = t.repo.Insert(ctx, &models.FilingRecord{
		Ticker:          ticker,
		FilingType:      filingType,
		FilingDate:      filingDate,
		FilePath:        path,
		AccessionNumber: accession,
		DownloadDate:    t.now().UTC(),
	})
	return err
}

func (t *Tracker) refresh(ctx context.Context, rec *models.FilingRecord) error {
	filingDate, accession, err := sniffFile(rec.FilePath)
	if err != nil {
		return err
	}
	return t.repo.UpdateMetadata(ctx, rec.ID, filingDate, accession)
}

// sniffFile reads the filing date and accession number from a file's head.
func sniffFile(path string) (time.Time, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, "", eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, edgar.SniffWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return time.Time{}, "", eris.Wrapf(err, "catalog: read %s", path)
	}
	head := string(buf[:n])

	filingDate, ok := edgar.SniffFilingDate(head)
	if !ok {
		return time.Time{}, "", eris.Wrapf(models.ErrNoFilingDate, "catalog: %s", path)
	}
	return filingDate, edgar.SniffAccession(head, path), nil
}

// =============================================================================
// QUERIES
// =============================================================================

// GetFilings returns cataloged filings, newest first. Records whose file is
// gone from disk are left out.
func (t *Tracker) GetFilings(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getFilings(ctx, filter)
}

func (t *Tracker) getFilings(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error) {
	// The limit is applied after dropping stale records.
	limit := filter.Limit
	filter.Limit = 0

	records, err := t.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	records = lo.Filter(records, func(r models.FilingRecord, _ int) bool {
		_, err := os.Stat(r.FilePath)
		return err == nil
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// MissingRanges reports the parts of [start, end] that have no local filing
// of the given type, using the cadence policy configured for that type.
func (t *Tracker) MissingRanges(ctx context.Context, ticker, filingType string, start, end time.Time) ([]models.MissingRange, error) {
	if err := requireIdentity(ticker, filingType); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, eris.Wrap(models.ErrInvalidInput, "catalog: start and end dates are required")
	}
	start, end = civil(start), civil(end)
	if start.After(end) {
		return nil, eris.Wrapf(models.ErrInvalidInput, "catalog: start %s is after end %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	t.mu.Lock()
	records, err := t.getFilings(ctx, models.FilingFilter{Ticker: ticker, FilingType: filingType, Start: start, End: end})
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []models.MissingRange{{Start: start, End: end}}, nil
	}

	existing := lo.Map(records, func(r models.FilingRecord, _ int) time.Time { return civil(r.FilingDate) })
	policy := PolicyFor(filingType, t.opts.Cadences, t.opts.GapDays, t.opts.ClipRanges)
	ranges := policy.Missing(existing, start, end)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })

	t.log.Debug("catalog: missing ranges",
		zap.String("ticker", ticker),
		zap.String("type", filingType),
		zap.Int("existing", len(existing)),
		zap.Int("missing", len(ranges)))
	return ranges, nil
}

// Stats summarizes the catalog.
func (t *Tracker) Stats(ctx context.Context) (*models.CatalogStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repo.Stats(ctx)
}

// =============================================================================
// PARSE STATE
// =============================================================================

// MarkParsed records a parse outcome. The record is found by id, then by
// ticker and accession, then by path. A nil date means now.
func (t *Tracker) MarkParsed(ctx context.Context, ref models.FilingRef, status models.ParseStatus, at *time.Time) error {
	if !status.Valid() {
		return eris.Wrapf(models.ErrInvalidInput, "catalog: unknown parse status %q", status)
	}
	if at == nil {
		now := t.now().UTC()
		at = &now
	}
	return t.setParseState(ctx, ref, store.ParseState{Parsed: true, Status: status, Date: at})
}

// MarkUnparsed resets a record so it is processed again.
func (t *Tracker) MarkUnparsed(ctx context.Context, ref models.FilingRef) error {
	return t.setParseState(ctx, ref, store.ParseState{})
}

func (t *Tracker) setParseState(ctx context.Context, ref models.FilingRef, state store.ParseState) error {
	if ref.IsZero() {
		return eris.Wrap(models.ErrInvalidInput, "catalog: an id, ticker and accession, or path is required")
	}
	ref = narrowRef(ref)

	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.repo.SetParseState(ctx, ref, state)
	if err != nil {
		return err
	}
	if n == 0 {
		return eris.Wrapf(models.ErrNotFound, "catalog: no filing matches %+v", ref)
	}
	t.log.Debug("catalog: parse state updated", zap.Any("ref", ref), zap.Bool("parsed", state.Parsed), zap.String("status", string(state.Status)))
	return nil
}

// narrowRef keeps only the highest-priority identifier and makes paths absolute.
func narrowRef(ref models.FilingRef) models.FilingRef {
	switch {
	case ref.ID > 0:
		return models.FilingRef{ID: ref.ID}
	case ref.Ticker != "" && ref.Accession != "":
		return models.FilingRef{Ticker: ref.Ticker, Accession: ref.Accession}
	}
	if abs, err := filepath.Abs(ref.Path); err == nil {
		ref.Path = abs
	}
	return models.FilingRef{Path: ref.Path}
}

func requireIdentity(ticker, filingType string) error {
	if strings.TrimSpace(ticker) == "" || strings.TrimSpace(filingType) == "" {
		return eris.Wrap(models.ErrInvalidInput, "catalog: ticker and filing type are required")
	}
	return nil
}

func existingFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrap(err, "catalog: resolve path")
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", eris.Wrapf(models.ErrInvalidInput, "catalog: %s is not a readable file", path)
	}
	return abs, nil
}
