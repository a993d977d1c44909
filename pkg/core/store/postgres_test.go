package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresCatalog_Contract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	c, err := OpenPostgres(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.pool.Exec(ctx, "TRUNCATE filings RESTART IDENTITY")
	require.NoError(t, err)

	runRepositoryContract(t, c)
}
