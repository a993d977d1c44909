package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// formAliases maps catalog filing-type names to EDGAR form codes.
var formAliases = map[string]string{
	"FILING_10K": "10-K",
	"FILING_10Q": "10-Q",
	"FILING_8K":  "8-K",
	"FILING_20F": "20-F",
	"FILING_40F": "40-F",
	"FILING_6K":  "6-K",
}

// FormCode returns the EDGAR form code for a catalog filing type.
func FormCode(filingType string) string {
	filingType = strings.TrimSpace(filingType)
	if code, ok := formAliases[strings.ToUpper(filingType)]; ok {
		return code
	}
	return filingType
}

// ArchiveSource downloads full-text submissions into
// {root}/{ticker}/{filingType}/{accession}.txt.
type ArchiveSource struct {
	client *ArchiveClient
	root   string
	log    *zap.Logger
}

// NewArchiveSource creates a source writing below root.
func NewArchiveSource(client *ArchiveClient, root string, log *zap.Logger) *ArchiveSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &ArchiveSource{client: client, root: root, log: log}
}

// Folder is where filings of one ticker and type are deposited.
func (s *ArchiveSource) Folder(ticker, filingType string) string {
	return filepath.Join(s.root, ticker, filingType)
}

// Fetch downloads every filing of the given type filed inside [start, end]
// that is not already on disk. It returns the number of files written.
func (s *ArchiveSource) Fetch(ctx context.Context, ticker, filingType string, start, end time.Time) (int, error) {
	if ticker == "" || filingType == "" {
		return 0, eris.Wrap(models.ErrInvalidInput, "ingest: ticker and filing type are required")
	}
	if end.Before(start) {
		return 0, eris.Wrapf(models.ErrInvalidInput, "ingest: start %s after end %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	cik, err := s.client.LookupCIK(ctx, ticker)
	if err != nil {
		return 0, err
	}
	filings, err := s.listFilings(ctx, cik, FormCode(filingType), start, end)
	if err != nil {
		return 0, err
	}

	folder := s.Folder(ticker, filingType)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return 0, eris.Wrapf(err, "ingest: create %s", folder)
	}

	written := 0
	for _, f := range filings {
		path := filepath.Join(folder, f.AccessionNumber+".txt")
		if _, err := os.Stat(path); err == nil {
			s.log.Debug("ingest: already downloaded", zap.String("path", path))
			continue
		}

		body, err := s.client.Download(ctx, cik, f.AccessionNumber)
		if err != nil {
			return written, err
		}
		if err := writeAtomic(path, body); err != nil {
			return written, err
		}
		written++
		s.log.Info("ingest: filing downloaded",
			zap.String("ticker", ticker),
			zap.String("accession", f.AccessionNumber),
			zap.String("filed", f.FilingDate.Format(models.DateLayout)))
	}
	return written, nil
}

// listFilings collects matching filings from the recent block and any older
// history pages whose date span overlaps the window.
func (s *ArchiveSource) listFilings(ctx context.Context, cik, form string, start, end time.Time) ([]Filing, error) {
	subs, err := s.client.Submissions(ctx, cik)
	if err != nil {
		return nil, err
	}
	filings := subs.Filings.Recent.Select(form, start, end)

	for _, page := range subs.Filings.Files {
		from, errFrom := time.Parse(models.DateLayout, page.FilingFrom)
		to, errTo := time.Parse(models.DateLayout, page.FilingTo)
		if errFrom == nil && errTo == nil && (to.Before(start) || from.After(end)) {
			continue
		}
		cols, err := s.client.OlderFilings(ctx, page.Name)
		if err != nil {
			return nil, err
		}
		filings = append(filings, cols.Select(form, start, end)...)
	}

	return lo.UniqBy(filings, func(f Filing) string { return f.AccessionNumber }), nil
}

func writeAtomic(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return eris.Wrap(err, "ingest: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "ingest: close %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "ingest: rename into %s", path)
}
