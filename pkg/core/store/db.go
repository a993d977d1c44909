package store

import (
	"context"

	"github.com/Nepo127/EDGAR-GetFilings/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options selects and configures a catalog backend.
type Options struct {
	// Driver is "sqlite" or "postgres".
	Driver      string
	Path        string
	DatabaseURL string
}

// Open returns the catalog backend named by opts.Driver. The caller owns
// the result and must Close it.
func Open(ctx context.Context, opts Options, log *zap.Logger) (CatalogRepository, error) {
	switch opts.Driver {
	case "", "sqlite":
		c, err := OpenSQLite(ctx, DefaultSQLiteConfig(opts.Path), log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, eris.Wrap(models.ErrInvalidInput, "store: DATABASE_URL not set")
		}
		c, err := OpenPostgres(ctx, opts.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, eris.Wrapf(models.ErrInvalidInput, "store: unknown driver %q", opts.Driver)
}
