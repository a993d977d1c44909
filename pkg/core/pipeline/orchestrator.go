// Package pipeline wires the catalog, the filing source, the extraction
// engine and the export sinks into the acquire and parse flows.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/catalog"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// FilingSource deposits filings of one ticker and type into Folder.
// Fetch is called at most once per missing range.
type FilingSource interface {
	Fetch(ctx context.Context, ticker, filingType string, start, end time.Time) (int, error)
	Folder(ticker, filingType string) string
}

// Catalog is the part of the gap tracker the pipeline drives.
type Catalog interface {
	CatalogFolder(ctx context.Context, ticker, filingType, folder string, updateExisting bool) (catalog.FolderResult, error)
	MissingRanges(ctx context.Context, ticker, filingType string, start, end time.Time) ([]models.MissingRange, error)
	GetFilings(ctx context.Context, filter models.FilingFilter) ([]models.FilingRecord, error)
	MarkParsed(ctx context.Context, ref models.FilingRef, status models.ParseStatus, at *time.Time) error
}

// Orchestrator fills catalog gaps from a filing source.
type Orchestrator struct {
	catalog Catalog
	source  FilingSource
	log     *zap.Logger
}

func NewOrchestrator(cat Catalog, source FilingSource, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{catalog: cat, source: source, log: log}
}

// GetCompanyFilings returns the local filings of ticker and type inside
// [start, end], downloading whatever the catalog reports as missing first.
// Ranges are fetched one at a time. When a fetch fails, files that already
// arrived are still cataloged before the error is returned.
func (o *Orchestrator) GetCompanyFilings(ctx context.Context, ticker, filingType string, start, end time.Time) ([]models.FilingRecord, error) {
	if ticker == "" || filingType == "" {
		return nil, eris.Wrap(models.ErrInvalidInput, "pipeline: ticker and filing type are required")
	}
	if start.After(end) {
		return nil, eris.Wrapf(models.ErrInvalidInput, "pipeline: start %s after end %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	log := o.log.With(zap.String("ticker", ticker), zap.String("type", filingType))
	folder := o.source.Folder(ticker, filingType)

	if err := o.catalogIfPresent(ctx, ticker, filingType, folder); err != nil {
		return nil, err
	}

	missing, err := o.catalog.MissingRanges(ctx, ticker, filingType, start, end)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		log.Info("pipeline: fetching missing ranges",
			zap.Strings("ranges", lo.Map(missing, func(r models.MissingRange, _ int) string { return r.String() })))

		var fetchErr error
		fetched := 0
		for _, r := range missing {
			n, err := o.source.Fetch(ctx, ticker, filingType, r.Start, r.End)
			fetched += n
			if err != nil {
				fetchErr = eris.Wrapf(err, "pipeline: fetch %s %s %s", ticker, filingType, r)
				break
			}
		}
		log.Info("pipeline: fetch finished", zap.Int("downloaded", fetched))

		if err := o.catalogIfPresent(ctx, ticker, filingType, folder); err != nil {
			return nil, err
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
	}

	return o.catalog.GetFilings(ctx, models.FilingFilter{
		Ticker:     ticker,
		FilingType: filingType,
		Start:      start,
		End:        end,
	})
}

func (o *Orchestrator) catalogIfPresent(ctx context.Context, ticker, filingType, folder string) error {
	if _, err := os.Stat(folder); err != nil {
		return nil
	}
	res, err := o.catalog.CatalogFolder(ctx, ticker, filingType, folder, false)
	if err != nil {
		return err
	}
	o.log.Debug("pipeline: folder cataloged", zap.String("folder", folder), zap.Int("added", res.Added))
	return nil
}
