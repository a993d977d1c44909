package main

import (
	"fmt"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/config"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/edgar"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/export"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/pipeline"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/reader"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		dir          string
		ticker       string
		workers      int
		resume       bool
		allDocuments bool
		tickerMap    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "parse [FILE...]",
		Short: "Extract tables and sections from bundles",
		Long: "With file arguments each bundle is parsed in turn. Without them every .txt\n" +
			"bundle under --dir (default: the download folder) is parsed by a worker pool\n" +
			"and a processing_summary.json is written to the output folder.",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.LoadProfiles(a.cfg.Parser.ProfilesFile)
			if err != nil {
				return err
			}
			opts := a.cfg.EngineOptions()
			if allDocuments {
				opts.ProcessAllDocuments = true
			}
			engine := edgar.NewEngine(profiles, opts, a.log)
			writer := export.NewWriter(a.cfg.OutputFolder, a.log)
			proc := pipeline.NewProcessor(reader.New(a.log), engine, writer, a.tracker, a.log)
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				var failed int
				for _, path := range args {
					res, err := proc.ProcessFile(cmd.Context(), path, ticker)
					if err != nil {
						failed++
						a.log.Error("edgarctl: parse failed", zap.String("path", path), zap.Error(err))
						fmt.Fprintf(out, "FAIL\t%s\t%v\n", path, err)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\t%d tables\t%d sections\n",
						res.Status(), path, len(res.Tables)+len(res.TextTables), len(res.Sections))
				}
				if failed > 0 {
					return eris.Errorf("%d of %d files failed", failed, len(args))
				}
				return nil
			}

			if dir == "" {
				dir = a.cfg.DownloadFolder
			}
			if workers == 0 {
				workers = a.cfg.Parser.Workers
			}
			batch := pipeline.NewBatch(proc, a.cfg.OutputFolder, pipeline.BatchOptions{
				Workers:   workers,
				Resume:    resume,
				TickerMap: tickerMap,
			}, a.log)
			summary, err := batch.Run(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d files, %d successful, %d failed\n", summary.TotalFiles, summary.Successful, summary.Failed)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "directory to scan for .txt bundles")
	f.StringVar(&ticker, "ticker", "", "ticker for file arguments (default: grandparent directory)")
	f.IntVarP(&workers, "workers", "w", 0, "worker pool size (default from config)")
	f.BoolVar(&resume, "resume", false, "skip files the previous summary lists as successful")
	f.BoolVar(&allDocuments, "all-documents", false, "process every document block, not only profiled types")
	f.StringToStringVar(&tickerMap, "ticker-map", nil, "directory=ticker overrides, e.g. BRK-B=BRK.B")
	return cmd
}
