package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"careflow/db"
)

// Setup applies the embedded migrations against the DSN and returns a pool.
// Migrations are versioned, so reusing a shared database is safe.
func Setup(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if err := db.Migrate(dsn); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pool: %w", err)
	}
	return pool, nil
}
