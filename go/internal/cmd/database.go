package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
)

// setupDatabase connects to Postgres. A nil database with a nil error means the
// database was unreachable and the service should run offline.
func setupDatabase(ctx context.Context, dbConfig dbconfig.Config) (*sql.DB, error) {
	database, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbConfig.ConnectTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		log.Warn().
			Err(err).
			Str("database", dbConfig.Target()).
			Msg("database unreachable, running offline")
		return nil, nil
	}

	log.Info().Str("database", dbConfig.Target()).Msg("connected to database")
	return database, nil
}
