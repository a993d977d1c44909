// Package ingest fetches full-text submissions from the SEC EDGAR archive.
// API Documentation: https://www.sec.gov/developer
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.sec.gov"
	DefaultDataURL = "https://data.sec.gov"

	tickersPath     = "/files/company_tickers.json"
	submissionsPath = "/submissions/CIK%s.json"
	archivePath     = "/Archives/edgar/data/%s/%s/%s.txt"
)

// ArchiveConfig configures the EDGAR client. SEC asks for a descriptive
// User-Agent and at most 10 requests per second.
type ArchiveConfig struct {
	UserAgent         string
	BaseURL           string
	DataURL           string
	RequestsPerSecond float64
	MaxRetries        int
	RetryWait         time.Duration
	Timeout           time.Duration
}

// DefaultArchiveConfig returns conservative defaults.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		UserAgent:         "EDGAR-GetFilings/1.0 (contact@example.com)",
		BaseURL:           DefaultBaseURL,
		DataURL:           DefaultDataURL,
		RequestsPerSecond: 5,
		MaxRetries:        3,
		RetryWait:         500 * time.Millisecond,
		Timeout:           30 * time.Second,
	}
}

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// Submissions is the company submission history returned by data.sec.gov.
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent FilingColumns `json:"recent"`
		Files  []struct {
			Name       string `json:"name"`
			FilingFrom string `json:"filingFrom"`
			FilingTo   string `json:"filingTo"`
		} `json:"files"`
	} `json:"filings"`
}

// FilingColumns holds filing attributes as parallel arrays.
type FilingColumns struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Filing is one row of FilingColumns.
type Filing struct {
	AccessionNumber string
	FilingDate      time.Time
	Form            string
}

// Select returns the filings of one form type filed inside [start, end].
func (fc FilingColumns) Select(form string, start, end time.Time) []Filing {
	var out []Filing
	for i := range fc.AccessionNumber {
		if i >= len(fc.Form) || i >= len(fc.FilingDate) || fc.Form[i] != form {
			continue
		}
		filed, err := time.Parse(models.DateLayout, fc.FilingDate[i])
		if err != nil || filed.Before(start) || filed.After(end) {
			continue
		}
		out = append(out, Filing{AccessionNumber: fc.AccessionNumber[i], FilingDate: filed, Form: fc.Form[i]})
	}
	return out
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// ArchiveClient talks to the EDGAR endpoints with rate limiting and retry.
type ArchiveClient struct {
	cfg        ArchiveConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger

	mu   sync.Mutex
	ciks map[string]string
}

// NewArchiveClient creates a client; zero config fields take the defaults.
func NewArchiveClient(cfg ArchiveConfig, log *zap.Logger) *ArchiveClient {
	def := DefaultArchiveConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = def.DataURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = def.RetryWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ArchiveClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:        log,
	}
}

// statusError is a non-2xx answer from EDGAR.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("edgar returned status %d for %s", e.code, e.url)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// get fetches url, waiting on the rate limiter before every attempt and
// retrying 429 and 5xx answers with exponential backoff.
func (c *ArchiveClient) get(ctx context.Context, url string) ([]byte, error) {
	attempt := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept-Encoding", "identity")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			serr := &statusError{code: resp.StatusCode, url: url}
			if retryable(resp.StatusCode) {
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}
		return io.ReadAll(resp.Body)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryWait
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(c.cfg.MaxRetries, 0))), ctx)

	body, err := backoff.RetryNotifyWithData(attempt, b, func(err error, wait time.Duration) {
		c.log.Warn("ingest: request retry", zap.String("url", url), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		var serr *statusError
		if errors.As(err, &serr) && serr.code == http.StatusNotFound {
			return nil, eris.Wrapf(models.ErrNotFound, "ingest: %s", url)
		}
		return nil, eris.Wrapf(err, "ingest: get %s", url)
	}
	return body, nil
}

// LookupCIK maps a ticker to its zero-padded 10 digit CIK. The mapping file
// is downloaded once per client. A ticker made only of digits is taken as a CIK.
func (c *ArchiveClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", eris.Wrap(models.ErrInvalidInput, "ingest: ticker is empty")
	}
	if _, err := strconv.ParseUint(ticker, 10, 64); err == nil {
		return padCIK(ticker), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ciks == nil {
		body, err := c.get(ctx, c.cfg.BaseURL+tickersPath)
		if err != nil {
			return "", err
		}
		// { "0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ... }
		var mapping map[string]struct {
			CIK    int64  `json:"cik_str"`
			Ticker string `json:"ticker"`
		}
		if err := json.Unmarshal(body, &mapping); err != nil {
			return "", eris.Wrap(err, "ingest: decode ticker mapping")
		}
		c.ciks = make(map[string]string, len(mapping))
		for _, entry := range mapping {
			c.ciks[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
		}
	}

	cik, ok := c.ciks[ticker]
	if !ok {
		return "", eris.Wrapf(models.ErrNotFound, "ingest: ticker %s has no CIK", ticker)
	}
	return cik, nil
}

// Submissions returns the filing history of a company.
func (c *ArchiveClient) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	body, err := c.get(ctx, c.cfg.DataURL+fmt.Sprintf(submissionsPath, padCIK(cik)))
	if err != nil {
		return nil, err
	}
	var subs Submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, eris.Wrap(err, "ingest: decode submissions")
	}
	return &subs, nil
}

// OlderFilings loads one of the paged history files listed in Submissions.
func (c *ArchiveClient) OlderFilings(ctx context.Context, name string) (FilingColumns, error) {
	var cols FilingColumns
	body, err := c.get(ctx, c.cfg.DataURL+"/submissions/"+name)
	if err != nil {
		return cols, err
	}
	return cols, eris.Wrapf(json.Unmarshal(body, &cols), "ingest: decode %s", name)
}

// Download fetches the full-text submission of one filing.
func (c *ArchiveClient) Download(ctx context.Context, cik, accession string) ([]byte, error) {
	return c.get(ctx, c.submissionURL(cik, accession))
}

func (c *ArchiveClient) submissionURL(cik, accession string) string {
	return c.cfg.BaseURL + fmt.Sprintf(archivePath,
		strings.TrimLeft(cik, "0"), strings.ReplaceAll(accession, "-", ""), accession)
}

func padCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(strings.TrimSpace(cik), "0"))
}
