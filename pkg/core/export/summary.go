package export

import (
	"os"
	"path/filepath"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/utils"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
)

// SummaryFile is the batch summary name inside the output root.
const SummaryFile = "processing_summary.json"

// WriteSummary writes the batch summary into dir.
func WriteSummary(dir string, s *models.BatchSummary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	if s.Results == nil {
		s.Results = []models.FileResult{}
	}
	return WriteJSON(filepath.Join(dir, SummaryFile), s)
}

// LoadSummary reads a previous batch summary from dir. A missing file yields
// (nil, nil). A summary truncated by an interrupted run is repaired; its
// counters are recomputed from the results that survived.
func LoadSummary(dir string) (*models.BatchSummary, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "export: read summary")
	}

	var s models.BatchSummary
	repaired, err := utils.DecodeLenient(data, &s)
	if err != nil {
		return nil, eris.Wrap(err, "export: decode summary")
	}
	if repaired {
		s.Successful = lo.CountBy(s.Results, func(r models.FileResult) bool { return r.Status == StatusSuccess })
		s.Failed = len(s.Results) - s.Successful
	}
	return &s, nil
}

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// SucceededFiles returns the set of files a summary lists as successful.
func SucceededFiles(s *models.BatchSummary) map[string]bool {
	if s == nil {
		return map[string]bool{}
	}
	ok := lo.Filter(s.Results, func(r models.FileResult, _ int) bool { return r.Status == StatusSuccess })
	return lo.SliceToMap(ok, func(r models.FileResult) (string, bool) { return r.File, true })
}
