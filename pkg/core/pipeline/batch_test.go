package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/export"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockProcessor struct {
	ProcessFileFunc func(ctx context.Context, path, ticker string) (*models.ParseResult, error)
}

func (m *MockProcessor) ProcessFile(ctx context.Context, path, ticker string) (*models.ParseResult, error) {
	if m.ProcessFileFunc != nil {
		return m.ProcessFileFunc(ctx, path, ticker)
	}
	return &models.ParseResult{}, nil
}

// layout creates {root}/{ticker}/10-K/{name}.txt for each entry plus one
// file that is not a bundle.
func layout(t *testing.T, root string, files map[string][]string) []string {
	t.Helper()
	var paths []string
	for ticker, names := range files {
		dir := filepath.Join(root, ticker, "10-K")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, n := range names {
			p := filepath.Join(dir, n+".txt")
			require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
			paths = append(paths, p)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644))
	return paths
}

func TestBatch_FailureDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string][]string{"AAPL": {"a", "b"}, "MSFT": {"c"}})
	out := t.TempDir()

	var mu sync.Mutex
	tickers := map[string]string{}
	proc := &MockProcessor{ProcessFileFunc: func(_ context.Context, path, ticker string) (*models.ParseResult, error) {
		mu.Lock()
		tickers[filepath.Base(path)] = ticker
		mu.Unlock()
		if filepath.Base(path) == "b.txt" {
			return nil, errors.New("corrupt bundle")
		}
		return &models.ParseResult{}, nil
	}}

	b := NewBatch(proc, out, BatchOptions{Workers: 2, TickerMap: map[string]string{"MSFT": "MSFT.O"}}, zaptest.NewLogger(t))
	summary, err := b.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, map[string]string{"a.txt": "AAPL", "b.txt": "AAPL", "c.txt": "MSFT.O"}, tickers)

	failed := summary.Results[1]
	assert.Equal(t, "b.txt", filepath.Base(failed.File))
	assert.Equal(t, export.StatusFailed, failed.Status)
	assert.Equal(t, "corrupt bundle", failed.Error)

	saved, err := export.LoadSummary(out)
	require.NoError(t, err)
	assert.Equal(t, summary, saved)
}

func TestBatch_PanicIsRecordedAsFailure(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string][]string{"AAPL": {"a", "b"}})

	proc := &MockProcessor{ProcessFileFunc: func(_ context.Context, path, _ string) (*models.ParseResult, error) {
		if filepath.Base(path) == "a.txt" {
			panic("index out of range")
		}
		return &models.ParseResult{}, nil
	}}

	summary, err := NewBatch(proc, t.TempDir(), BatchOptions{Workers: 2}, zaptest.NewLogger(t)).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, export.StatusFailed, summary.Results[0].Status)
	assert.Equal(t, "panic: index out of range", summary.Results[0].Error)
	assert.Equal(t, export.StatusSuccess, summary.Results[1].Status)
}

func TestBatch_WorkerLimit(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string][]string{"AAPL": {"a", "b", "c", "d", "e", "f"}})

	var running, peak atomic.Int32
	proc := &MockProcessor{ProcessFileFunc: func(context.Context, string, string) (*models.ParseResult, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return &models.ParseResult{}, nil
	}}

	_, err := NewBatch(proc, t.TempDir(), BatchOptions{Workers: 2}, nil).Run(context.Background(), root)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatch_Resume(t *testing.T) {
	root := t.TempDir()
	paths := layout(t, root, map[string][]string{"AAPL": {"a", "b"}})
	out := t.TempDir()

	require.NoError(t, export.WriteSummary(out, &models.BatchSummary{
		TotalFiles: 2, Successful: 1, Failed: 1,
		Results: []models.FileResult{
			{File: paths[0], Status: export.StatusSuccess},
			{File: paths[1], Status: export.StatusFailed, Error: "x"},
		},
	}))

	var processed []string
	proc := &MockProcessor{ProcessFileFunc: func(_ context.Context, path, _ string) (*models.ParseResult, error) {
		processed = append(processed, path)
		return &models.ParseResult{}, nil
	}}

	summary, err := NewBatch(proc, out, BatchOptions{Workers: 1, Resume: true}, nil).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{paths[1]}, processed)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 0, summary.Failed)
}

func TestBatch_SkipsOutputInsideInput(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string][]string{"AAPL": {"a"}})
	out := filepath.Join(root, "parsed")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "AAPL", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "AAPL", "x", "stray.txt"), []byte("x"), 0o644))

	summary, err := NewBatch(&MockProcessor{}, out, BatchOptions{}, nil).Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalFiles)
}

func TestBatch_InputErrors(t *testing.T) {
	b := NewBatch(&MockProcessor{}, t.TempDir(), BatchOptions{}, nil)

	_, err := b.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, eris.Is(err, models.ErrInvalidInput))

	_, err = b.Run(context.Background(), t.TempDir())
	assert.True(t, eris.Is(err, models.ErrInvalidInput))
}
