package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/export"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/reader"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sampleBundle = `<SEC-DOCUMENT>0000320193-20-000096.txt : 20201030
<SEC-HEADER>0000320193-20-000096.hdr.sgml : 20201030
ACCESSION NUMBER:		0000320193-20-000096
FILED AS OF DATE:		20201030
FILER:
	COMPANY DATA:
		COMPANY CONFORMED NAME:			Apple Inc.
		CENTRAL INDEX KEY:			0000320193
	FILING VALUES:
		FORM TYPE:		10-K
</SEC-HEADER>
<DOCUMENT>
<TYPE>10-K
<TEXT>
<html><body>
<h2>Balance Sheet</h2>
<p>Summary.</p>
<table>
<tr><td>Cash</td><td>100</td></tr>
<tr><td>Debt</td><td>50</td></tr>
</table>
</body></html>
</TEXT>
</DOCUMENT>
</SEC-DOCUMENT>
`

type MockSink struct {
	WriteFunc func(bundlePath string, res *models.ParseResult) (string, error)
}

func (m *MockSink) Write(bundlePath string, res *models.ParseResult) (string, error) {
	if m.WriteFunc != nil {
		return m.WriteFunc(bundlePath, res)
	}
	return "", nil
}

func writeSample(t *testing.T, root, ticker string) string {
	t.Helper()
	dir := filepath.Join(root, ticker, "10-K")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "0000320193-20-000096.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleBundle), 0o644))
	return path
}

type utf8Detector struct{}

func (utf8Detector) Detect([]byte) (string, int, error) { return "UTF-8", 100, nil }

func newTestProcessor(t *testing.T, sink Sink, rec ParseRecorder) *Processor {
	log := zaptest.NewLogger(t)
	rd := reader.NewWithDetector(utf8Detector{}, log)
	return NewProcessor(rd, edgar.NewEngine(edgar.DefaultProfiles(), edgar.EngineOptions{}, log), sink, rec, log)
}

func TestTickerFromPath(t *testing.T) {
	assert.Equal(t, "AAPL", TickerFromPath(filepath.Join("data", "AAPL", "10-K", "x.txt")))
	assert.Equal(t, "", TickerFromPath("x.txt"))
}

func TestProcessor_ProcessFile(t *testing.T) {
	root := t.TempDir()
	path := writeSample(t, root, "AAPL")

	var marked []models.ParseStatus
	var markedRef models.FilingRef
	rec := &MockCatalog{MarkParsedFunc: func(_ context.Context, ref models.FilingRef, status models.ParseStatus, at *time.Time) error {
		markedRef = ref
		marked = append(marked, status)
		assert.Nil(t, at)
		return nil
	}}

	out := filepath.Join(root, "out")
	p := newTestProcessor(t, export.NewWriter(out, nil), rec)

	res, err := p.ProcessFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", res.Metadata.Ticker)
	assert.Equal(t, "utf-8", res.Metadata.DetectedEncoding)
	assert.False(t, res.Metadata.EncodingDegraded)
	assert.Equal(t, int64(len(sampleBundle)), res.Metadata.FileSize)
	assert.Equal(t, path, res.Metadata.FilePath)
	require.Len(t, res.Tables, 1)

	assert.Equal(t, []models.ParseStatus{models.ParseSuccess}, marked)
	assert.True(t, filepath.IsAbs(markedRef.Path))

	bundleDir := filepath.Join(out, "AAPL", "0000320193-20-000096")
	assert.FileExists(t, filepath.Join(bundleDir, "metadata.json"))
	assert.FileExists(t, filepath.Join(bundleDir, "tables", "Balance_Sheet_1.csv"))
	assert.FileExists(t, filepath.Join(bundleDir, "sections", "sections.html"))
}

func TestProcessor_Failures(t *testing.T) {
	root := t.TempDir()
	path := writeSample(t, root, "AAPL")

	t.Run("missing file", func(t *testing.T) {
		var marked []models.ParseStatus
		rec := &MockCatalog{MarkParsedFunc: func(_ context.Context, _ models.FilingRef, s models.ParseStatus, _ *time.Time) error {
			marked = append(marked, s)
			return nil
		}}
		_, err := newTestProcessor(t, &MockSink{}, rec).ProcessFile(context.Background(), filepath.Join(root, "nope.txt"), "X")
		require.Error(t, err)
		assert.Equal(t, []models.ParseStatus{models.ParseFailed}, marked)
	})

	t.Run("sink error", func(t *testing.T) {
		var marked []models.ParseStatus
		rec := &MockCatalog{MarkParsedFunc: func(_ context.Context, _ models.FilingRef, s models.ParseStatus, _ *time.Time) error {
			marked = append(marked, s)
			return nil
		}}
		sink := &MockSink{WriteFunc: func(string, *models.ParseResult) (string, error) {
			return "", errors.New("disk full")
		}}
		_, err := newTestProcessor(t, sink, rec).ProcessFile(context.Background(), path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, []models.ParseStatus{models.ParseFailed}, marked)
	})

	t.Run("uncataloged file is not an error", func(t *testing.T) {
		rec := &MockCatalog{MarkParsedFunc: func(context.Context, models.FilingRef, models.ParseStatus, *time.Time) error {
			return models.ErrNotFound
		}}
		_, err := newTestProcessor(t, &MockSink{}, rec).ProcessFile(context.Background(), path, "")
		assert.NoError(t, err)
	})

	t.Run("no recorder", func(t *testing.T) {
		_, err := newTestProcessor(t, &MockSink{}, nil).ProcessFile(context.Background(), path, "")
		assert.NoError(t, err)
	})
}
