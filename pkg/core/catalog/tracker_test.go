package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/store"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	tracker *Tracker
	root    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.OpenSQLite(context.Background(), store.DefaultSQLiteConfig(filepath.Join(dir, "catalog.db")), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tr := NewTracker(repo, opts, zaptest.NewLogger(t))
	tr.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return &fixture{tracker: tr, root: filepath.Join(dir, "downloads")}
}

// writeBundle writes a minimal bundle whose header carries the filing date.
func (f *fixture) writeBundle(t *testing.T, ticker, filingType, filed, accession string) string {
	t.Helper()
	dir := filepath.Join(f.root, ticker, filingType)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	name := accession
	if name == "" {
		name = "filing-" + filed
	}
	path := filepath.Join(dir, name+".txt")
	header := fmt.Sprintf("<SEC-DOCUMENT>\nFILED AS OF DATE:\t\t%s\n", filed)
	if accession != "" {
		header = fmt.Sprintf("<SEC-DOCUMENT>\nACCESSION NUMBER:\t\t%s\nFILED AS OF DATE:\t\t%s\n", accession, filed)
	}
	require.NoError(t, os.WriteFile(path, []byte(header+"<DOCUMENT>\n<TYPE>"+filingType+"\n</DOCUMENT>\n"), 0o644))
	return path
}

func TestCatalogFile_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	path := f.writeBundle(t, "AAPL", "10-K", "20201030", "0000320193-20-000096")

	added, err := f.tracker.CatalogFile(ctx, "AAPL", "10-K", path)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.tracker.CatalogFile(ctx, "AAPL", "10-K", path)
	require.NoError(t, err)
	assert.False(t, added)

	records, err := f.tracker.GetFilings(ctx, models.FilingFilter{Ticker: "AAPL"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2020-10-30", records[0].FilingDate.Format(models.DateLayout))
	assert.Equal(t, "0000320193-20-000096", records[0].AccessionNumber)
	assert.False(t, records[0].Parsed)
	assert.Equal(t, 2024, records[0].DownloadDate.Year())
}

func TestCatalogFile_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())

	_, err := f.tracker.CatalogFile(ctx, "", "10-K", "/x.txt")
	assert.True(t, eris.Is(err, models.ErrInvalidInput))

	_, err = f.tracker.CatalogFile(ctx, "AAPL", "10-K", filepath.Join(f.root, "missing.txt"))
	assert.True(t, eris.Is(err, models.ErrInvalidInput))

	require.NoError(t, os.MkdirAll(f.root, 0o755))
	undated := filepath.Join(f.root, "undated.txt")
	require.NoError(t, os.WriteFile(undated, []byte("<html>no header</html>"), 0o644))
	_, err = f.tracker.CatalogFile(ctx, "AAPL", "10-K", undated)
	assert.True(t, eris.Is(err, models.ErrNoFilingDate))
}

func TestCatalogFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	f.writeBundle(t, "AAPL", "10-Q", "20200131", "0000320193-20-000010")
	f.writeBundle(t, "AAPL", "10-Q", "20200501", "0000320193-20-000052")
	folder := filepath.Join(f.root, "AAPL", "10-Q")
	require.NoError(t, os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("scratch"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(folder, "sub"), 0o755))

	res, err := f.tracker.CatalogFolder(ctx, "AAPL", "10-Q", folder, false)
	require.NoError(t, err)
	assert.Equal(t, FolderResult{Added: 2, Skipped: 1}, res)

	res, err = f.tracker.CatalogFolder(ctx, "AAPL", "10-Q", folder, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count())

	// Rewrite one header and refresh.
	path := filepath.Join(folder, "0000320193-20-000010.txt")
	require.NoError(t, os.WriteFile(path, []byte("FILED AS OF DATE: 20200205\nACCESSION NUMBER: 0000320193-20-000011\n"), 0o644))
	res, err = f.tracker.CatalogFolder(ctx, "AAPL", "10-Q", folder, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	records, err := f.tracker.GetFilings(ctx, models.FilingFilter{Ticker: "AAPL", FilingType: "10-Q"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2020-02-05", records[1].FilingDate.Format(models.DateLayout))
	assert.Equal(t, "0000320193-20-000011", records[1].AccessionNumber)

	_, err = f.tracker.CatalogFolder(ctx, "AAPL", "10-Q", filepath.Join(f.root, "nope"), false)
	assert.True(t, eris.Is(err, models.ErrInvalidInput))
}

func TestGetFilings_DropsVanishedFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	keep := f.writeBundle(t, "MSFT", "8-K", "20210105", "")
	gone := f.writeBundle(t, "MSFT", "8-K", "20210301", "")
	_, err := f.tracker.CatalogFolder(ctx, "MSFT", "8-K", filepath.Dir(keep), false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))

	records, err := f.tracker.GetFilings(ctx, models.FilingFilter{Ticker: "MSFT", Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep, records[0].FilePath)

	stats, err := f.tracker.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestMissingRanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	f.writeBundle(t, "AAPL", "10-Q", "20200331", "")
	f.writeBundle(t, "AAPL", "10-Q", "20200930", "")
	_, err := f.tracker.CatalogFolder(ctx, "AAPL", "10-Q", filepath.Join(f.root, "AAPL", "10-Q"), false)
	require.NoError(t, err)

	ranges, err := f.tracker.MissingRanges(ctx, "AAPL", "10-Q", d("2020-01-01"), d("2020-12-31"))
	require.NoError(t, err)
	assert.Equal(t, []models.MissingRange{rng("2020-04-01", "2020-06-30"), rng("2020-10-01", "2020-12-31")}, ranges)

	// Nothing cataloged for this type: the whole window is missing.
	ranges, err = f.tracker.MissingRanges(ctx, "AAPL", "8-K", d("2020-01-01"), d("2020-12-31"))
	require.NoError(t, err)
	assert.Equal(t, []models.MissingRange{rng("2020-01-01", "2020-12-31")}, ranges)
}

func TestMissingRanges_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())

	tests := []struct {
		name               string
		ticker, filingType string
		start, end         time.Time
	}{
		{"empty ticker", "", "10-K", d("2020-01-01"), d("2020-12-31")},
		{"empty type", "AAPL", " ", d("2020-01-01"), d("2020-12-31")},
		{"inverted window", "AAPL", "10-K", d("2021-01-01"), d("2020-12-31")},
		{"zero start", "AAPL", "10-K", time.Time{}, d("2020-12-31")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.MissingRanges(ctx, tt.ticker, tt.filingType, tt.start, tt.end)
			assert.True(t, eris.Is(err, models.ErrInvalidInput))
		})
	}
}

func TestMissingRanges_FillRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{GapDays: 45})
	for _, filed := range []string{"20200115", "20200301", "20200601"} {
		f.writeBundle(t, "TSLA", "8-K", filed, "")
	}
	folder := filepath.Join(f.root, "TSLA", "8-K")
	_, err := f.tracker.CatalogFolder(ctx, "TSLA", "8-K", folder, false)
	require.NoError(t, err)

	start, end := d("2020-01-01"), d("2020-12-31")
	ranges, err := f.tracker.MissingRanges(ctx, "TSLA", "8-K", start, end)
	require.NoError(t, err)
	require.Contains(t, ranges, rng("2020-03-02", "2020-05-31"))
	require.Contains(t, ranges, rng("2020-06-02", "2020-12-31"))

	var filled []time.Time
	for _, r := range ranges {
		mid := r.Start.AddDate(0, 0, int(r.End.Sub(r.Start).Hours()/24)/2)
		f.writeBundle(t, "TSLA", "8-K", mid.Format("20060102"), "")
		filled = append(filled, mid)
	}
	_, err = f.tracker.CatalogFolder(ctx, "TSLA", "8-K", folder, false)
	require.NoError(t, err)

	again, err := f.tracker.MissingRanges(ctx, "TSLA", "8-K", start, end)
	require.NoError(t, err)
	for _, r := range again {
		for _, day := range filled {
			assert.False(t, r.Contains(day), "range %s overlaps filled date %s", r, day.Format(models.DateLayout))
		}
	}
}

func TestMarkParsedAndUnparsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	path := f.writeBundle(t, "AAPL", "10-K", "20201030", "0000320193-20-000096")
	_, err := f.tracker.CatalogFile(ctx, "AAPL", "10-K", path)
	require.NoError(t, err)

	records, err := f.tracker.GetFilings(ctx, models.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	id := records[0].ID

	tests := []struct {
		name   string
		ref    models.FilingRef
		status models.ParseStatus
	}{
		{"by id", models.FilingRef{ID: id}, models.ParseSuccess},
		{"by ticker and accession", models.FilingRef{Ticker: "AAPL", Accession: "0000320193-20-000096"}, models.ParsePartial},
		{"by path", models.FilingRef{Path: path}, models.ParseFailed},
		{"id wins over a wrong path", models.FilingRef{ID: id, Path: "/elsewhere.txt"}, models.ParseSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.tracker.MarkParsed(ctx, tt.ref, tt.status, nil))
			parsed := true
			got, err := f.tracker.GetFilings(ctx, models.FilingFilter{Parsed: &parsed})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.status, got[0].ParseStatus)
			require.NotNil(t, got[0].ParseDate)
			assert.Equal(t, 2024, got[0].ParseDate.Year())
		})
	}

	require.NoError(t, f.tracker.MarkUnparsed(ctx, models.FilingRef{Path: path}))
	unparsed := false
	got, err := f.tracker.GetFilings(ctx, models.FilingFilter{Parsed: &unparsed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].ParseDate)

	err = f.tracker.MarkParsed(ctx, models.FilingRef{ID: id + 100}, models.ParseSuccess, nil)
	assert.True(t, eris.Is(err, models.ErrNotFound))

	err = f.tracker.MarkParsed(ctx, models.FilingRef{}, models.ParseSuccess, nil)
	assert.True(t, eris.Is(err, models.ErrInvalidInput))

	err = f.tracker.MarkParsed(ctx, models.FilingRef{ID: id}, models.ParseStatus("great"), nil)
	assert.True(t, eris.Is(err, models.ErrInvalidInput))
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultOptions())
	f.writeBundle(t, "AAPL", "10-K", "20201030", "0000320193-20-000096")
	f.writeBundle(t, "AAPL", "10-Q", "20200501", "0000320193-20-000052")
	f.writeBundle(t, "MSFT", "10-K", "20210729", "0000789019-21-000030")

	results, err := f.tracker.SyncAll(ctx, f.root, nil, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"AAPL": {"10-K": 1, "10-Q": 1},
		"MSFT": {"10-K": 1},
	}, results)

	results, err = f.tracker.SyncAll(ctx, f.root, []string{"MSFT", "GOOG"}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{"MSFT": {"10-K": 0}}, results)

	_, err = f.tracker.SyncAll(ctx, filepath.Join(f.root, "missing"), nil, false)
	assert.True(t, eris.Is(err, models.ErrInvalidInput))
}
