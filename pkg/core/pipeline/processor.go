package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/reader"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sink persists one parse result and returns where it went.
type Sink interface {
	Write(bundlePath string, res *models.ParseResult) (string, error)
}

// ParseRecorder records parse outcomes; *catalog.Tracker implements it.
type ParseRecorder interface {
	MarkParsed(ctx context.Context, ref models.FilingRef, status models.ParseStatus, at *time.Time) error
}

// Processor runs the single-file flow: decode, extract, export, record.
// It is safe for concurrent use when its sink and recorder are.
type Processor struct {
	reader   *reader.Reader
	engine   *edgar.Engine
	sink     Sink
	recorder ParseRecorder
	log      *zap.Logger
}

// NewProcessor creates a Processor; recorder may be nil.
func NewProcessor(rd *reader.Reader, engine *edgar.Engine, sink Sink, recorder ParseRecorder, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{reader: rd, engine: engine, sink: sink, recorder: recorder, log: log}
}

// TickerFromPath returns the grandparent directory name of a bundle laid out
// as {root}/{ticker}/{type}/{file}.
func TickerFromPath(path string) string {
	dir := filepath.Dir(filepath.Dir(filepath.Clean(path)))
	name := filepath.Base(dir)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// ProcessFile parses and exports one bundle. An empty ticker is taken from
// the path. The outcome is recorded in the catalog when the file is cataloged.
func (p *Processor) ProcessFile(ctx context.Context, path, ticker string) (*models.ParseResult, error) {
	if ticker == "" {
		ticker = TickerFromPath(path)
	}
	log := p.log.With(zap.String("path", path))

	decoded, err := p.reader.ReadFile(path)
	if err != nil {
		p.record(ctx, path, models.ParseFailed)
		return nil, err
	}

	res := p.engine.Parse(decoded.Text, ticker)
	res.Metadata.DetectedEncoding = decoded.Encoding
	res.Metadata.EncodingDegraded = decoded.Degraded
	res.Metadata.FilePath = path
	res.Metadata.FileSize = decoded.Size

	dir, err := p.sink.Write(path, res)
	if err != nil {
		p.record(ctx, path, models.ParseFailed)
		return res, eris.Wrapf(err, "pipeline: export %s", path)
	}

	status := res.Status()
	p.record(ctx, path, status)
	log.Info("pipeline: file parsed",
		zap.String("output", dir),
		zap.String("status", string(status)),
		zap.Int("tables", len(res.Tables)),
		zap.Int("text_tables", len(res.TextTables)),
		zap.Int("sections", len(res.Sections)))
	return res, nil
}

func (p *Processor) record(ctx context.Context, path string, status models.ParseStatus) {
	if p.recorder == nil {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	err = p.recorder.MarkParsed(ctx, models.FilingRef{Path: abs}, status, nil)
	switch {
	case err == nil:
	case eris.Is(err, models.ErrNotFound):
		p.log.Debug("pipeline: file not cataloged, outcome not recorded", zap.String("path", path))
	default:
		p.log.Warn("pipeline: record parse outcome", zap.String("path", path), zap.Error(err))
	}
}
