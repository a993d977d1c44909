// Package config loads the immutable run configuration: defaults, an optional
// YAML file, .env and environment overrides, in that order.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/catalog"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/ingest"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v2"
)

// DefaultFile is read when no config path is given.
const DefaultFile = "config.yaml"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is built once at startup and handed to constructors by value.
type Config struct {
	DownloadFolder string  `yaml:"download_folder"`
	OutputFolder   string  `yaml:"output_folder"`
	Catalog        Catalog `yaml:"catalog"`
	Tracker        Tracker `yaml:"tracker"`
	Parser         Parser  `yaml:"parser"`
	Source         Source  `yaml:"source"`
	Log            Log     `yaml:"log"`
}

type Catalog struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

type Tracker struct {
	GapDays    int               `yaml:"gap_days"`
	ClipRanges bool              `yaml:"clip_ranges"`
	Cadence    map[string]string `yaml:"cadence"`
}

type Parser struct {
	Workers             int    `yaml:"workers"`
	ProcessAllDocuments bool   `yaml:"process_all_documents"`
	ProfilesFile        string `yaml:"profiles_file"`
	TextTables          string `yaml:"text_tables"`
}

type Source struct {
	UserAgent         string        `yaml:"user_agent"`
	BaseURL           string        `yaml:"base_url"`
	DataURL           string        `yaml:"data_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxRetries        int           `yaml:"max_retries"`
	Timeout           time.Duration `yaml:"timeout"`
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	src := ingest.DefaultArchiveConfig()
	cadence := make(map[string]string)
	for k, v := range catalog.DefaultCadences() {
		cadence[k] = string(v)
	}
	return Config{
		DownloadFolder: "sec_filings",
		OutputFolder:   "parsed_filings",
		Catalog: Catalog{
			Driver: DriverSQLite,
			Path:   "sec_filings/catalog.db",
		},
		Tracker: Tracker{
			GapDays: catalog.DefaultGapDays,
			Cadence: cadence,
		},
		Parser: Parser{
			Workers:    4,
			TextTables: string(edgar.TextTablesAuto),
		},
		Source: Source{
			UserAgent:         src.UserAgent,
			BaseURL:           src.BaseURL,
			DataURL:           src.DataURL,
			RequestsPerSecond: src.RequestsPerSecond,
			MaxRetries:        src.MaxRetries,
			Timeout:           src.Timeout,
		},
		Log: Log{Level: "info", Console: true},
	}
}

// Load builds the configuration. An empty path falls back to DefaultFile,
// which may be absent; an explicit path must exist. A missing .env is fine.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, eris.Wrapf(err, "config: parse %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return cfg, eris.Wrapf(err, "config: read %s", path)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, eris.Wrap(err, "config: load .env")
	}
	applyEnv(&cfg)

	return cfg, cfg.Validate()
}

var envOverrides = map[string]func(*Config, string){
	"EDGAR_DOWNLOAD_FOLDER": func(c *Config, v string) { c.DownloadFolder = v },
	"EDGAR_OUTPUT_FOLDER":   func(c *Config, v string) { c.OutputFolder = v },
	"EDGAR_CATALOG_DRIVER":  func(c *Config, v string) { c.Catalog.Driver = v },
	"EDGAR_CATALOG_PATH":    func(c *Config, v string) { c.Catalog.Path = v },
	"DATABASE_URL":          func(c *Config, v string) { c.Catalog.DatabaseURL = v },
	"EDGAR_USER_AGENT":      func(c *Config, v string) { c.Source.UserAgent = v },
	"EDGAR_LOG_LEVEL":       func(c *Config, v string) { c.Log.Level = v },
}

func applyEnv(cfg *Config) {
	for key, set := range envOverrides {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			set(cfg, strings.TrimSpace(v))
		}
	}
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Catalog.Driver {
	case DriverSQLite:
		if c.Catalog.Path == "" {
			return eris.Wrap(models.ErrInvalidInput, "config: catalog.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Catalog.DatabaseURL == "" {
			return eris.Wrap(models.ErrInvalidInput, "config: catalog.database_url is required for postgres")
		}
	default:
		return eris.Wrapf(models.ErrInvalidInput, "config: unknown catalog driver %q", c.Catalog.Driver)
	}
	if c.Parser.Workers < 1 {
		return eris.Wrapf(models.ErrInvalidInput, "config: parser.workers must be positive, got %d", c.Parser.Workers)
	}
	if c.Tracker.GapDays < 0 {
		return eris.Wrapf(models.ErrInvalidInput, "config: tracker.gap_days must not be negative, got %d", c.Tracker.GapDays)
	}
	if _, err := edgar.ParseTextTableMode(c.Parser.TextTables); err != nil {
		return err
	}
	if _, err := c.cadences(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func (c Config) cadences() (map[string]catalog.Cadence, error) {
	out := make(map[string]catalog.Cadence, len(c.Tracker.Cadence))
	for typ, v := range c.Tracker.Cadence {
		cad := catalog.Cadence(strings.ToLower(strings.TrimSpace(v)))
		switch cad {
		case catalog.CadenceQuarterly, catalog.CadenceAnnual, catalog.CadenceGap:
			out[strings.TrimSpace(typ)] = cad
		default:
			return nil, eris.Wrapf(models.ErrInvalidInput, "config: unknown cadence %q for %s", v, typ)
		}
	}
	return out, nil
}

// TrackerOptions converts the tracker section for catalog.NewTracker.
func (c Config) TrackerOptions() catalog.Options {
	cad := catalog.DefaultCadences()
	if extra, err := c.cadences(); err == nil {
		for typ, v := range extra {
			cad[typ] = v
		}
	}
	return catalog.Options{
		GapDays:    c.Tracker.GapDays,
		ClipRanges: c.Tracker.ClipRanges,
		Cadences:   cad,
	}
}

// ArchiveConfig converts the source section for ingest.NewArchiveClient.
func (c Config) ArchiveConfig() ingest.ArchiveConfig {
	def := ingest.DefaultArchiveConfig()
	return ingest.ArchiveConfig{
		UserAgent:         c.Source.UserAgent,
		BaseURL:           c.Source.BaseURL,
		DataURL:           c.Source.DataURL,
		RequestsPerSecond: c.Source.RequestsPerSecond,
		MaxRetries:        c.Source.MaxRetries,
		RetryWait:         def.RetryWait,
		Timeout:           c.Source.Timeout,
	}
}

// EngineOptions converts the parser section for edgar.NewEngine.
func (c Config) EngineOptions() edgar.EngineOptions {
	mode, err := edgar.ParseTextTableMode(c.Parser.TextTables)
	if err != nil {
		mode = edgar.TextTablesAuto
	}
	return edgar.EngineOptions{
		ProcessAllDocuments: c.Parser.ProcessAllDocuments,
		TextTables:          mode,
	}
}
