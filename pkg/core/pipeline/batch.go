package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/export"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the batch pool size when none is configured.
const DefaultWorkers = 4

// BatchOptions tune a batch run.
type BatchOptions struct {
	Workers int
	// Resume skips files the previous summary lists as successful.
	Resume bool
	// TickerMap maps a bundle's grandparent directory name to a ticker.
	TickerMap map[string]string
}

// FileProcessor is the per-file step of a batch.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path, ticker string) (*models.ParseResult, error)
}

// Batch parses every .txt bundle under a directory with a bounded worker
// pool. One file failing never stops the others.
type Batch struct {
	processor  FileProcessor
	summaryDir string
	opts       BatchOptions
	log        *zap.Logger
}

// NewBatch creates a batch runner writing its summary into summaryDir.
func NewBatch(processor FileProcessor, summaryDir string, opts BatchOptions, log *zap.Logger) *Batch {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Batch{processor: processor, summaryDir: summaryDir, opts: opts, log: log}
}

// Run processes inputDir and writes processing_summary.json.
func (b *Batch) Run(ctx context.Context, inputDir string) (*models.BatchSummary, error) {
	if info, err := os.Stat(inputDir); err != nil || !info.IsDir() {
		return nil, eris.Wrapf(models.ErrInvalidInput, "pipeline: input directory %s does not exist", inputDir)
	}
	files, err := bundleFiles(inputDir, b.summaryDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, eris.Wrapf(models.ErrInvalidInput, "pipeline: no .txt files in %s", inputDir)
	}

	done := map[string]bool{}
	if b.opts.Resume {
		prev, err := export.LoadSummary(b.summaryDir)
		if err != nil {
			return nil, err
		}
		done = export.SucceededFiles(prev)
	}

	b.log.Info("pipeline: batch started",
		zap.Int("files", len(files)),
		zap.Int("workers", b.opts.Workers),
		zap.Int("already_done", len(done)))

	results := make([]models.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, path := range files {
		ticker := b.ticker(path)
		if done[path] {
			results[i] = models.FileResult{File: path, Ticker: ticker, Status: export.StatusSuccess}
			continue
		}
		g.Go(func() error {
			results[i] = b.processOne(gctx, path, ticker)
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.BatchSummary{
		TotalFiles: len(files),
		Successful: lo.CountBy(results, func(r models.FileResult) bool { return r.Status == export.StatusSuccess }),
		Results:    results,
	}
	summary.Failed = summary.TotalFiles - summary.Successful

	if err := export.WriteSummary(b.summaryDir, summary); err != nil {
		return summary, err
	}
	b.log.Info("pipeline: batch finished",
		zap.Int("total", summary.TotalFiles),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed))
	return summary, ctx.Err()
}

func (b *Batch) processOne(ctx context.Context, path, ticker string) (res models.FileResult) {
	res = models.FileResult{File: path, Ticker: ticker}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("pipeline: file panicked", zap.String("path", path), zap.Any("panic", r))
			res.Status, res.Error = export.StatusFailed, fmt.Sprintf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Status, res.Error = export.StatusFailed, err.Error()
		return res
	}
	if _, err := b.processor.ProcessFile(ctx, path, ticker); err != nil {
		b.log.Error("pipeline: file failed", zap.String("path", path), zap.Error(err))
		res.Status, res.Error = export.StatusFailed, err.Error()
		return res
	}
	res.Status = export.StatusSuccess
	return res
}

func (b *Batch) ticker(path string) string {
	dir := TickerFromPath(path)
	if t, ok := b.opts.TickerMap[dir]; ok {
		return t
	}
	return dir
}

// bundleFiles lists .txt files under root in lexical order, skipping the
// output directory when it sits inside root.
func bundleFiles(root, skip string) ([]string, error) {
	skipAbs, _ := filepath.Abs(skip)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); skip != "" && abs == skipAbs && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".txt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: walk %s", root)
	}
	sort.Strings(files)
	return files, nil
}
