package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"testing/fstest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderListsRootSQLFilesInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_rules.sql":       {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"0001_init.sql":        {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"README.md":            {Data: []byte("docs")},
		"nested/0003_skip.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	// sql.Open does not connect, so the provider can be built without a server.
	sqlDB, err := sql.Open("pgx", "postgres://appointbook@127.0.0.1:1/none")
	require.NoError(t, err)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	require.NoError(t, err)

	var versions []int64
	for _, s := range provider.ListSources() {
		versions = append(versions, s.Version)
	}
	assert.Equal(t, []int64{1, 2}, versions)
}

func TestMigrateAgainstPostgres(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	store, err := database.NewStore(database.DialectPostgres, "migrate_test_versions")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DROP TABLE IF EXISTS migrate_test_marker`)
		_, _ = pool.Exec(ctx, `DROP TABLE IF EXISTS migrate_test_versions`)
	})

	fsys := fstest.MapFS{
		"0001_marker.sql": {Data: []byte("-- +goose Up\nCREATE TABLE migrate_test_marker (id int);\n\n-- +goose Down\nDROP TABLE migrate_test_marker;\n")},
	}

	applied, err := Migrate(ctx, pool, fsys, nil, goose.WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_marker.sql"}, applied)

	applied, err = Migrate(ctx, pool, fsys, nil, goose.WithStore(store))
	require.NoError(t, err)
	assert.Empty(t, applied)

	// closing the database/sql wrapper leaves the pool open
	require.NoError(t, pool.Ping(ctx))
}
