// Command edgarctl manages a local catalog of SEC EDGAR filings: it fills
// gaps from the EDGAR archive, tracks parse state and extracts tables and
// sections from full-text submissions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/catalog"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/config"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/logging"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/core/store"
	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once the config is loaded.
type app struct {
	cfgPath string

	cfg     config.Config
	log     *zap.Logger
	repo    store.CatalogRepository
	tracker *catalog.Tracker
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.log, err = logging.New(cfg.Log); err != nil {
		return err
	}

	a.repo, err = store.Open(ctx, store.Options{
		Driver:      cfg.Catalog.Driver,
		Path:        cfg.Catalog.Path,
		DatabaseURL: cfg.Catalog.DatabaseURL,
	}, a.log)
	if err != nil {
		return eris.Wrap(err, "open catalog")
	}
	a.tracker = catalog.NewTracker(a.repo, cfg.TrackerOptions(), a.log)
	return nil
}

func (a *app) teardown() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("edgarctl: close catalog", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "edgarctl",
		Short:         "Catalog, fetch and parse SEC EDGAR filings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default "+config.DefaultFile+" if present)")

	root.AddCommand(
		newFetchCmd(a),
		newCatalogCmd(a),
		newSyncCmd(a),
		newListCmd(a),
		newStatsCmd(a),
		newMarkCmd(a),
		newUnmarkCmd(a),
		newParseCmd(a),
	)
	return root
}

// execute runs one command line. The catalog is closed whether or not the
// command succeeds.
func (a *app) execute(ctx context.Context, args []string, out io.Writer) error {
	defer a.teardown()

	root := newRootCmd(a)
	root.SetArgs(args)
	if out != nil {
		root.SetOut(out)
		root.SetErr(out)
	}
	return root.ExecuteContext(ctx)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return t, eris.Wrapf(models.ErrInvalidInput, "date %q is not YYYY-MM-DD", s)
	}
	return t, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := (&app{}).execute(ctx, os.Args[1:], nil); err != nil {
		fmt.Fprintln(os.Stderr, "edgarctl:", err)
		stop()
		os.Exit(1)
	}
}
