package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies the goose-annotated *.sql files at the root of fsys that are newer than the
// recorded schema version. It returns the file names applied in this run.
func Migrate(ctx context.Context, pool *Pool, fsys fs.FS, logger *slog.Logger, opts ...goose.ProviderOption) ([]string, error) {
	sqlDB := stdlib.OpenDBFromPool(pool.Pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys, opts...)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	applied := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil || r.Error != nil {
			continue
		}
		name := path.Base(r.Source.Path)
		if logger != nil {
			logger.Info("migration applied", "version", r.Source.Version, "file", name, "duration", r.Duration)
		}
		applied = append(applied, name)
	}
	if err != nil {
		return applied, fmt.Errorf("migrate up: %w", err)
	}
	return applied, nil
}
