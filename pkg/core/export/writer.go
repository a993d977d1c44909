package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Writer lays out one directory per bundle:
//
//	{root}/{ticker}/{bundle}/metadata.json
//	{root}/{ticker}/{bundle}/tables/*.csv
//	{root}/{ticker}/{bundle}/text_tables/*.csv
//	{root}/{ticker}/{bundle}/sections/...
type Writer struct {
	root string
	log  *zap.Logger
}

func NewWriter(root string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{root: root, log: log}
}

// Root is the output base directory.
func (w *Writer) Root() string { return w.root }

// BundleDir is the output directory of one bundle file.
func (w *Writer) BundleDir(ticker, bundlePath string) string {
	name := strings.TrimSuffix(filepath.Base(bundlePath), filepath.Ext(bundlePath))
	if ticker == "" {
		ticker = "unknown"
	}
	return filepath.Join(w.root, ticker, name)
}

// Write exports everything in res and returns the bundle directory.
func (w *Writer) Write(bundlePath string, res *models.ParseResult) (string, error) {
	dir := w.BundleDir(res.Metadata.Ticker, bundlePath)

	if err := writeTables(filepath.Join(dir, "tables"), "table", res.Tables); err != nil {
		return dir, err
	}
	if err := writeTables(filepath.Join(dir, "text_tables"), "text_table", res.TextTables); err != nil {
		return dir, err
	}

	title := res.Metadata.Filer.CompanyData.CompanyConformedName
	if title == "" {
		title = filepath.Base(bundlePath)
	}
	if res.Metadata.FormType != "" {
		title += " " + res.Metadata.FormType
	}
	if err := WriteSections(filepath.Join(dir, "sections"), title, res.Sections); err != nil {
		return dir, err
	}

	if err := WriteJSON(filepath.Join(dir, "metadata.json"), res.Metadata); err != nil {
		return dir, err
	}

	w.log.Debug("export: bundle written",
		zap.String("dir", dir),
		zap.Int("tables", len(res.Tables)),
		zap.Int("text_tables", len(res.TextTables)),
		zap.Int("sections", len(res.Sections)))
	return dir, nil
}

func writeTables(dir, fallback string, tables []models.TableRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	for i, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}
		if err := WriteTableCSV(filepath.Join(dir, TableFileName(t.Label, i, fallback)), t); err != nil {
			return err
		}
	}
	return nil
}
