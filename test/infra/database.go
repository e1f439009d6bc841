package infra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jackc/pgx/v5"
)

// InitLocalDatabase recreates careflow_test on a locally running PostgreSQL
// and returns a DSN for it. Fallback for machines without Docker; the tests
// run as whatever superuser the local install accepts.
func InitLocalDatabase(ctx context.Context) (string, error) {
	if exec.Command("pg_isready", "-h", "127.0.0.1", "-p", "5432").Run() != nil {
		return "", fmt.Errorf("PostgreSQL is not running")
	}

	conn, adminDSN, err := connectAdmin(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx)

	// Drop lingering connections then recreate the database fresh for each run
	_, _ = conn.Exec(ctx, "SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = 'careflow_test' AND pid <> pg_backend_pid()")
	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS careflow_test"); err != nil {
		return "", fmt.Errorf("drop test database: %w", err)
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE careflow_test"); err != nil {
		return "", fmt.Errorf("create test database: %w", err)
	}

	return strings.Replace(adminDSN, "/postgres?", "/careflow_test?", 1), nil
}

// connectAdmin tries the usual local-install credential combinations against
// the postgres maintenance database.
func connectAdmin(ctx context.Context) (*pgx.Conn, string, error) {
	var lastErr error
	for _, user := range []string{"postgres", os.Getenv("USER")} {
		for _, cred := range []string{user, user + ":postgres"} {
			dsn := fmt.Sprintf("postgres://%s@127.0.0.1:5432/postgres?sslmode=disable", cred)
			conn, err := pgx.Connect(ctx, dsn)
			if err == nil {
				return conn, dsn, nil
			}
			lastErr = err
		}
	}
	return nil, "", fmt.Errorf("connect to local postgres: %w", lastErr)
}
