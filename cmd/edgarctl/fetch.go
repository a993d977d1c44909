package main

import (
	"fmt"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/ingest"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/pipeline"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "fetch TICKER TYPE",
		Short: "Download whatever is missing for a window, then list it",
		Example: "  edgarctl fetch AAPL 10-K --start 2018-01-01 --end 2023-12-31\n" +
			"  edgarctl fetch MSFT FILING_10Q --start 2022-01-01",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(start)
			if err != nil {
				return err
			}
			to := time.Now().UTC()
			if end != "" {
				if to, err = parseDate(end); err != nil {
					return err
				}
			}

			client := ingest.NewArchiveClient(a.cfg.ArchiveConfig(), a.log)
			source := ingest.NewArchiveSource(client, a.cfg.DownloadFolder, a.log)
			orch := pipeline.NewOrchestrator(a.tracker, source, a.log)

			records, err := orch.GetCompanyFilings(cmd.Context(), args[0], args[1], from, to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\n", r.FilingDate.Format(models.DateLayout), r.FilePath)
			}
			fmt.Fprintf(out, "%d filings between %s and %s\n", len(records),
				from.Format(models.DateLayout), to.Format(models.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "window end (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
