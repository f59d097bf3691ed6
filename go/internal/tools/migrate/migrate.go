package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
)

var (
	//go:embed schema.sql
	schemaSQL string
	//go:embed notify.sql
	notifySQL string
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "create sessions, results and timer_sync", schemaSQL},
	{2, "notify timer_sync_changed", notifySQL},
}

func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
          version    INTEGER PRIMARY KEY,
          name       TEXT NOT NULL,
          applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `); err != nil {
		fmt.Fprintf(os.Stderr, "create schema_migrations: %v\n", err)
		os.Exit(1)
	}

	applied := 0
	for _, m := range migrations {
		ok, err := apply(ctx, pool, m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration %d (%s): %v\n", m.version, m.name, err)
			os.Exit(1)
		}
		if ok {
			fmt.Printf("applied %d: %s\n", m.version, m.name)
			applied++
		}
	}

	fmt.Printf("Done: %d applied, %d already up to date (database %s)\n",
		applied, len(migrations)-applied, cfg.Target())
}

// apply runs m in its own transaction unless it is already recorded.
func apply(ctx context.Context, pool *pgxpool.Pool, m migration) (bool, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
	).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
	); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
