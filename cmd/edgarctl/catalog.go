package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	var update bool
	cmd := &cobra.Command{
		Use:   "catalog TICKER TYPE FOLDER",
		Short: "Catalog the bundles in one folder",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.tracker.CatalogFolder(cmd.Context(), args[0], args[1], args[2], update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, updated %d, skipped %d\n", res.Added, res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&update, "update", false, "re-read filing date and accession of known files")
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	var (
		tickers []string
		update  bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Catalog every {ticker}/{type} folder under the download folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, err := a.tracker.SyncAll(cmd.Context(), a.cfg.DownloadFolder, tickers, update)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := lo.Keys(counts)
			sort.Strings(names)
			total := 0
			for _, ticker := range names {
				types := lo.Keys(counts[ticker])
				sort.Strings(types)
				for _, typ := range types {
					fmt.Fprintf(out, "%s\t%s\t%d\n", ticker, typ, counts[ticker][typ])
					total += counts[ticker][typ]
				}
			}
			fmt.Fprintf(out, "%d files cataloged\n", total)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "only these tickers (default all)")
	cmd.Flags().BoolVar(&update, "update", false, "re-read filing date and accession of known files")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter           models.FilingFilter
		start, end       string
		parsed, unparsed bool
		asJSON           bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged filings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if parsed && unparsed {
				return eris.Wrap(models.ErrInvalidInput, "--parsed and --unparsed are exclusive")
			}
			var err error
			if start != "" {
				if filter.Start, err = parseDate(start); err != nil {
					return err
				}
			}
			if end != "" {
				if filter.End, err = parseDate(end); err != nil {
					return err
				}
			}
			if parsed || unparsed {
				filter.Parsed = lo.ToPtr(parsed)
			}

			records, err := a.tracker.GetFilings(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTICKER\tTYPE\tFILED\tACCESSION\tPARSE\tPATH")
			for _, r := range records {
				status := "-"
				if r.Parsed {
					status = string(r.ParseStatus)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Ticker, r.FilingType, r.FilingDate.Format(models.DateLayout),
					lo.Ternary(r.AccessionNumber == "", "-", r.AccessionNumber), status, r.FilePath)
			}
			return w.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Ticker, "ticker", "", "ticker")
	f.StringVar(&filter.FilingType, "type", "", "filing type")
	f.StringVar(&start, "start", "", "earliest filing date (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "latest filing date (YYYY-MM-DD)")
	f.BoolVar(&parsed, "parsed", false, "only parsed filings")
	f.BoolVar(&unparsed, "unparsed", false, "only unparsed filings")
	f.IntVar(&filter.Limit, "limit", 0, "at most this many rows")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.tracker.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			fmt.Fprintf(out, "total:    %d\n", st.Total)
			fmt.Fprintf(out, "parsed:   %d\n", st.Parsed)
			fmt.Fprintf(out, "unparsed: %d\n", st.Unparsed)
			if st.EarliestFiling != nil && st.LatestFiling != nil {
				fmt.Fprintf(out, "filed:    %s .. %s\n",
					st.EarliestFiling.Format(models.DateLayout), st.LatestFiling.Format(models.DateLayout))
			}
			printCounts(out, "by ticker", st.ByTicker)
			printCounts(out, "by type", st.ByType)
			printCounts(out, "by parse status", st.ByParseStatus)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := lo.Keys(counts)
	sort.Strings(keys)
	parts := lo.Map(keys, func(k string, _ int) string { return fmt.Sprintf("%s=%d", k, counts[k]) })
	fmt.Fprintf(out, "%s: %s\n", title, strings.Join(parts, " "))
}

// refFlags binds the three ways to name one catalog record.
type refFlags struct {
	ref models.FilingRef
}

func (r *refFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&r.ref.ID, "id", 0, "record id")
	f.StringVar(&r.ref.Ticker, "ticker", "", "ticker (with --accession)")
	f.StringVar(&r.ref.Accession, "accession", "", "accession number (with --ticker)")
	f.StringVar(&r.ref.Path, "path", "", "bundle file path")
}

func newMarkCmd(a *app) *cobra.Command {
	var (
		rf     refFlags
		status string
		at     string
	)
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Record a parse outcome for one filing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var when *time.Time
			if at != "" {
				t, err := parseDate(at)
				if err != nil {
					return err
				}
				when = &t
			}
			if err := a.tracker.MarkParsed(cmd.Context(), rf.ref, models.ParseStatus(status), when); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "marked", status)
			return nil
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVar(&status, "status", string(models.ParseSuccess), "success, partial, failed or unknown")
	cmd.Flags().StringVar(&at, "date", "", "parse date (YYYY-MM-DD, default now)")
	return cmd
}

func newUnmarkCmd(a *app) *cobra.Command {
	var rf refFlags
	cmd := &cobra.Command{
		Use:   "unmark",
		Short: "Clear the parse state of one filing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tracker.MarkUnparsed(cmd.Context(), rf.ref); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unmarked")
			return nil
		},
	}
	rf.bind(cmd)
	return cmd
}
