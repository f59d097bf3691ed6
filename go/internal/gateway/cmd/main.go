package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
	"github.com/Ralphbruens/Scoreboard/go/internal/gateway"
	"github.com/Ralphbruens/Scoreboard/go/internal/round"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// The standalone gateway serves displays from a separate process. It reads
// rooms over RPC and receives timer records from JetStream and/or Postgres
// notifications.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Get configuration
	port := getEnv("GATEWAY_PORT", "8081")
	apiURL := getEnv("SCOREBOARD_API_URL", "http://localhost:8080")
	natsURL := os.Getenv("NATS_URL")
	listen := os.Getenv("SYNC_LISTEN") == "true"

	if natsURL == "" && !listen {
		log.Fatal().Msg("NATS_URL or SYNC_LISTEN=true is required")
	}

	log.Info().
		Str("api_url", apiURL).
		Str("nats_url", natsURL).
		Bool("listen", listen).
		Str("port", port).
		Msg("starting clock gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rooms are read from the scoreboard service
	client := round.NewRoundServiceClient(&http.Client{Timeout: 10 * time.Second}, apiURL)
	router := timersync.NewRouter()
	gatewayService := gateway.NewService(gateway.DefaultConfig(), client, router)

	if natsURL != "" {
		jsConfig := timersync.DefaultJetStreamConfig()
		jsConfig.URL = natsURL
		jsConfig.ConsumerName = getEnv("GATEWAY_CONSUMER", "scoreboard-clock-gateway")
		subscriber, err := timersync.NewJetStreamSubscriber(ctx, router, gatewayService.HandleEvent, jsConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create jetstream subscriber")
		}
		defer subscriber.Close()
		gatewayService.AddTransport(subscriber)
	}
	if listen {
		listenerConfig := timersync.DefaultListenerConfig()
		listenerConfig.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
		listener, err := timersync.NewPGListener(gateway.ProviderFetcher{Provider: client}, router, listenerConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create timer listener")
		}
		gatewayService.AddTransport(listener)
	}

	// Setup HTTP server
	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		stats := gatewayService.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"clock-gateway","version":"1.0.0","connections":%d,"rooms":%d}`,
			stats.TotalConnections, len(stats.Rooms))
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     cors.AllowAll().Handler(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start gateway service (transports and connection manager)
	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Cancel service context to stop gateway service
	cancel()

	log.Info().Msg("clock gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
