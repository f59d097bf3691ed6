package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/clockdisplay"
	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
	"github.com/Ralphbruens/Scoreboard/go/internal/gateway"
	"github.com/Ralphbruens/Scoreboard/go/internal/round"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	room := flag.String("room", os.Getenv("CLOCK_ROOM"), "room code to display")
	apiURL := flag.String("api", getEnv("SCOREBOARD_API_URL", "http://localhost:8080"), "scoreboard service URL")
	gatewayURL := flag.String("gateway", os.Getenv("GATEWAY_URL"), "clock gateway URL (defaults to -api)")
	color := flag.Bool("color", true, "colour the clock by band")
	flag.Parse()

	// Logs go to stderr so they do not tear the clock line
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "warn"))
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	code := strings.ToUpper(strings.TrimSpace(*room))
	if code == "" {
		log.Fatal().Msg("-room or CLOCK_ROOM is required")
	}
	if *gatewayURL == "" {
		*gatewayURL = *apiURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := round.NewRoundServiceClient(&http.Client{Timeout: 10 * time.Second}, *apiURL)
	state, err := client.GetState(ctx, &round.RoomRequest{RoomCode: code})
	if err != nil {
		log.Fatal().Err(err).Str("room_code", code).Msg("failed to load room")
	}
	format, err := countdown.ParseFormat(state.Settings.DisplayFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported display format")
	}

	clock := clockwork.NewRealClock()
	display := clockdisplay.New(clock, clockdisplay.Config{
		Room:     code,
		Duration: state.Settings.Duration,
		Format:   format,
		Refresh:  countdown.DefaultRefreshInterval,
		Color:    *color,
	}, os.Stdout)
	defer display.Close()

	wsURL, err := clockdisplay.ClockURL(*gatewayURL, code)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid gateway url")
	}
	subscriber := clockdisplay.NewSubscriber(clock, wsURL, display.Observer(), display.ShowEvent)
	poller := timersync.NewPoller(clock, gateway.ProviderFetcher{Provider: client}, display.Observer(), code, timersync.DefaultPollInterval)

	// Polling runs alongside the socket; the observer keeps whichever record is newest.
	go poller.Run(ctx)
	if err := subscriber.Run(ctx); err != nil {
		log.Fatal().Err(err).Str("room_code", code).Msg("clock stopped")
	}
	os.Stdout.WriteString("\n")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
