package edgar

import (
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ParserVersion is stamped into every exported metadata object.
const ParserVersion = "2.0.0"

// TextTableMode controls when the plain-text table detector runs.
type TextTableMode string

const (
	// TextTablesAuto scans only blocks that contain no <table> markup.
	TextTablesAuto   TextTableMode = "auto"
	TextTablesAlways TextTableMode = "always"
	TextTablesNever  TextTableMode = "never"
)

// ParseTextTableMode validates a configured mode; empty means auto.
func ParseTextTableMode(s string) (TextTableMode, error) {
	switch m := TextTableMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TextTablesAuto, nil
	case TextTablesAuto, TextTablesAlways, TextTablesNever:
		return m, nil
	}
	return "", eris.Wrapf(models.ErrInvalidInput, "edgar: unknown text table mode %q", s)
}

// EngineOptions tune which blocks are processed.
type EngineOptions struct {
	// ProcessAllDocuments processes every block; otherwise only profiled
	// types and untyped blocks are processed.
	ProcessAllDocuments bool
	TextTables          TextTableMode
}

// Engine runs segmentation, header, table and section extraction over a
// decoded bundle. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	profiles Profiles
	tables   *TableExtractor
	sections *SectionExtractor
	opts     EngineOptions
	log      *zap.Logger
}

// NewEngine wires the extractors around one profile registry.
func NewEngine(profiles Profiles, opts EngineOptions, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TextTables == "" {
		opts.TextTables = TextTablesAuto
	}
	return &Engine{
		profiles: profiles,
		tables:   NewTableExtractor(profiles, log),
		sections: NewSectionExtractor(log),
		opts:     opts,
		log:      log,
	}
}

// Parse extracts header metadata, tables and sections from a bundle. Section
// numbers run 1..n across the whole bundle.
func (e *Engine) Parse(bundle, ticker string) *models.ParseResult {
	res := &models.ParseResult{}
	res.Metadata.HeaderMetadata = ExtractHeader(bundle)
	res.Metadata.Ticker = ticker
	res.Metadata.ParserVersion = ParserVersion

	for i, block := range Segment(bundle) {
		res.Metadata.DocumentTypes = append(res.Metadata.DocumentTypes, block.TypeTag)
		if !e.shouldProcess(block.TypeTag) {
			e.log.Debug("edgar: block skipped", zap.Int("block", i), zap.String("type", block.TypeTag))
			continue
		}

		tables := e.tables.ExtractTables(block.Body, block.TypeTag)
		res.Tables = append(res.Tables, tables...)

		if e.scanTextTables(block.Body, len(tables)) {
			res.TextTables = append(res.TextTables, e.tables.ExtractTextTables(block.Body)...)
		}

		cik := block.IssuerID
		if cik == "" {
			cik = res.Metadata.CIK
		}
		offset := len(res.Sections)
		for _, s := range e.sections.ExtractSections(block.Body, cik, ticker) {
			s.SectionNumber += offset
			s.DocumentType = block.TypeTag
			res.Sections = append(res.Sections, s)
		}

		e.log.Debug("edgar: block processed",
			zap.Int("block", i),
			zap.String("type", block.TypeTag),
			zap.Int("tables", len(tables)),
			zap.Int("sections", len(res.Sections)-offset))
	}

	res.Metadata.TablesCount = len(res.Tables)
	res.Metadata.TextTablesCount = len(res.TextTables)
	res.Metadata.SectionsCount = len(res.Sections)
	return res
}

func (e *Engine) shouldProcess(typeTag string) bool {
	return e.opts.ProcessAllDocuments || typeTag == UnknownType || e.profiles.Known(typeTag)
}

func (e *Engine) scanTextTables(body string, markupTables int) bool {
	switch e.opts.TextTables {
	case TextTablesAlways:
		return true
	case TextTablesNever:
		return false
	}
	return markupTables == 0 && !strings.Contains(strings.ToLower(body), "<table")
}
