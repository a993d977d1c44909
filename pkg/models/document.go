package models

// DocumentBlock is one <DOCUMENT> region of a filing bundle. It only lives for a single parse.
type DocumentBlock struct {
	TypeTag  string
	Body     string
	IssuerID string
}

// TableRecord is a rectangular table pulled from markup or plain text.
type TableRecord struct {
	Label string     `json:"label,omitempty"`
	Rows  [][]string `json:"rows"`
}

// Width returns the column count shared by every row.
func (t TableRecord) Width() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// SectionRecord is one heading-delimited text section of a document.
type SectionRecord struct {
	UUID          string `json:"uuid"`
	SectionNumber int    `json:"section_number"`
	Title         string `json:"title"`
	Level         int    `json:"level"`
	ParentTitle   string `json:"parent_title,omitempty"`
	Content       string `json:"content"`
	CIK           string `json:"cik,omitempty"`
	Ticker        string `json:"ticker,omitempty"`
	DocumentType  string `json:"document_type,omitempty"`
}

// CompanyData is the filer identity block of a submission header.
type CompanyData struct {
	CompanyConformedName             string `json:"company_conformed_name,omitempty"`
	CentralIndexKey                  string `json:"central_index_key,omitempty"`
	StandardIndustrialClassification string `json:"standard_industrial_classification,omitempty"`
	IRSNumber                        string `json:"irs_number,omitempty"`
	FiscalYearEnd                    string `json:"fiscal_year_end,omitempty"`
}

// FilingValues is the filing-values block of a submission header.
type FilingValues struct {
	FormType   string `json:"form_type,omitempty"`
	Act        string `json:"act,omitempty"`
	FileNumber string `json:"file_number,omitempty"`
	FilmNumber string `json:"film_number,omitempty"`
}

// Filer groups the nested header blocks.
type Filer struct {
	CompanyData  CompanyData  `json:"company_data"`
	FilingValues FilingValues `json:"filing_values"`
}

// HeaderMetadata holds the labeled fields of a bundle preamble.
// FormType and CIK are copied up from Filer when present.
type HeaderMetadata struct {
	AccessionNumber         string `json:"accession_number,omitempty"`
	ConformedPeriodOfReport string `json:"conformed_period_of_report,omitempty"`
	FiledAsOfDate           string `json:"filed_as_of_date,omitempty"`
	DateAsOfChange          string `json:"date_as_of_change,omitempty"`
	EffectivenessDate       string `json:"effectiveness_date,omitempty"`
	Filer                   Filer  `json:"filer"`
	FormType                string `json:"form_type,omitempty"`
	CIK                     string `json:"cik,omitempty"`
}

// BundleMetadata is the metadata object exported per parsed bundle.
type BundleMetadata struct {
	HeaderMetadata
	DetectedEncoding string   `json:"detected_encoding"`
	EncodingDegraded bool     `json:"encoding_degraded"`
	FilePath         string   `json:"file_path"`
	FileSize         int64    `json:"file_size"`
	Ticker           string   `json:"ticker,omitempty"`
	ParserVersion    string   `json:"parser_version"`
	DocumentTypes    []string `json:"document_types"`
	TablesCount      int      `json:"tables_count"`
	TextTablesCount  int      `json:"text_tables_count"`
	SectionsCount    int      `json:"sections_count"`
}

// ParseResult is everything extracted from one bundle.
type ParseResult struct {
	Metadata   BundleMetadata  `json:"metadata"`
	Tables     []TableRecord   `json:"tables"`
	TextTables []TableRecord   `json:"text_tables"`
	Sections   []SectionRecord `json:"sections"`
}

// Status derives the catalog parse status of a completed extraction.
func (r *ParseResult) Status() ParseStatus {
	if r.Metadata.EncodingDegraded {
		return ParsePartial
	}
	if len(r.Tables)+len(r.TextTables) == 0 || len(r.Sections) == 0 {
		return ParsePartial
	}
	return ParseSuccess
}

// FileResult is the outcome of one file in a batch run.
type FileResult struct {
	File   string `json:"file"`
	Ticker string `json:"ticker,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchSummary is written as processing_summary.json after a batch run.
type BatchSummary struct {
	TotalFiles int          `json:"total_files"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
}
