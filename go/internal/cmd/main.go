package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config, err := loadConfig(getEnv("SCOREBOARD_CONFIG", "scoreboard.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig := dbconfig.NewConfigFromEnv()
	database, err := setupDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	if database != nil {
		defer database.Close()
	}

	services, err := setupServices(ctx, config, database, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("clock gateway failed")
		}
	}()

	server := setupServer(services, config.Server.Port)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("scoreboard server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("scoreboard shutdown complete")
}
