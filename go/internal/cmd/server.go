package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Ralphbruens/Scoreboard/go/internal/round"
)

const serviceVersion = "1.0.0"

func setupServer(services *Services, port string) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	})

	// Register services
	registerServices(mux, services)

	// Add health check and info endpoints
	setupHealthCheck(mux, services)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// Register round service
	roundServicePath, roundServiceHandler := round.NewRoundServiceHandler(services.Round)
	mux.Handle(roundServicePath, roundServiceHandler)

	// Register clock gateway (WebSocket and REST)
	services.Gateway.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		status := round.ConnectionOnline
		if services.App.Offline() {
			status = round.ConnectionOffline
		}
		stats := services.Gateway.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"scoreboard","version":%q,"connectionStatus":%q,"connections":%d}`,
			serviceVersion, status, stats.TotalConnections)
	})
}
