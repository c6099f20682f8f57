// Command migrate applies the embedded Postgres schema for the session slot.
// SQLite databases are migrated by the server on open.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/trajector/portal/internal/store/migrations"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		slog.Error("failed to connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		slog.Error("failed to create migrations table", "err", err)
		os.Exit(1)
	}

	files, err := fs.Glob(migrations.Postgres, "postgres/*.sql")
	if err != nil {
		slog.Error("failed to list migrations", "err", err)
		os.Exit(1)
	}
	sort.Strings(files)

	applied := 0
	for _, f := range files {
		version := strings.TrimSuffix(path.Base(f), ".sql")

		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`,
			version,
		).Scan(&exists); err != nil {
			slog.Error("failed to check migration", "version", version, "err", err)
			os.Exit(1)
		}
		if exists {
			continue
		}

		sql, err := fs.ReadFile(migrations.Postgres, f)
		if err != nil {
			slog.Error("failed to read migration", "file", f, "err", err)
			os.Exit(1)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			slog.Error("failed to begin migration", "version", version, "err", err)
			os.Exit(1)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			slog.Error("migration failed", "version", version, "err", err)
			os.Exit(1)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			_ = tx.Rollback(ctx)
			slog.Error("failed to record migration", "version", version, "err", err)
			os.Exit(1)
		}
		if err := tx.Commit(ctx); err != nil {
			slog.Error("failed to commit migration", "version", version, "err", err)
			os.Exit(1)
		}

		fmt.Printf("applied: %s\n", version)
		applied++
	}

	fmt.Printf("migrations complete (%d applied)\n", applied)
}
