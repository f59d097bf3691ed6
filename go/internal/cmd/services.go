package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
	"github.com/Ralphbruens/Scoreboard/go/internal/gateway"
	"github.com/Ralphbruens/Scoreboard/go/internal/leaderboard"
	"github.com/Ralphbruens/Scoreboard/go/internal/round"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

type Services struct {
	App     *round.App
	Round   *round.Service
	Gateway *gateway.Service

	closers []func() error
}

// Close releases the broker and cache connections.
func (s *Services) Close() {
	s.App.Close()
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Error().Err(err).Msg("failed to close service dependency")
		}
	}
}

func setupServices(ctx context.Context, config *Config, database *sql.DB, dbConfig dbconfig.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()
	router := timersync.NewRouter()
	services := &Services{}

	appConfig, err := config.AppConfig()
	if err != nil {
		return nil, err
	}

	deps := round.AppDeps{
		Boards: setupBoards(ctx, clock, config, appConfig.Defaults.Policy, services),
	}
	var repo *round.Repository
	if database != nil {
		repo = round.NewRepository(database)
		deps.Store = repo
	}

	// Timer records always reach the in-process displays through the router.
	// Events go either straight to the gateway or, with a broker, through
	// JetStream back into it, never both.
	timers := timersync.MultiPublisher{router}
	var gw *gateway.Service
	toGateway := timersync.EventPublisherFunc(func(ctx context.Context, ev timersync.Event) error {
		return gw.PublishEvent(ctx, ev)
	})
	deps.Events = toGateway

	var transports []gateway.Transport
	if config.Sync.NATSURL != "" {
		jsConfig := timersync.DefaultJetStreamConfig()
		jsConfig.URL = config.Sync.NATSURL

		publisher, err := timersync.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create jetstream publisher: %w", err)
		}
		services.closers = append(services.closers, publisher.Close)
		timers = append(timers, publisher)
		deps.Events = publisher

		subscriber, err := timersync.NewJetStreamSubscriber(ctx, router, func(ev timersync.Event) {
			gw.HandleEvent(ev)
		}, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create jetstream subscriber: %w", err)
		}
		services.closers = append(services.closers, subscriber.Close)
		transports = append(transports, subscriber)
	}
	if config.Sync.Listen && repo != nil {
		listenerConfig := timersync.DefaultListenerConfig()
		listenerConfig.DatabaseURL = dbConfig.DSN()
		listener, err := timersync.NewPGListener(repo, router, listenerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create timer listener: %w", err)
		}
		transports = append(transports, listener)
	}
	deps.Timers = timers

	services.App = round.NewApp(clock, appConfig, deps)
	services.Round = round.NewService(services.App)

	gw = gateway.NewService(gateway.DefaultConfig(), gateway.NewAppStateProvider(services.App), router)
	for _, t := range transports {
		gw.AddTransport(t)
	}
	services.Gateway = gw

	log.Info().
		Bool("offline", services.App.Offline()).
		Int("transports", len(transports)).
		Str("leaderboard_store", config.Leaderboard.Store).
		Msg("services ready")
	return services, nil
}

// setupBoards picks the snapshot store of the leaderboards and restores the
// board of the default policy. An unreachable Redis falls back to files.
func setupBoards(ctx context.Context, clock clockwork.Clock, config *Config, policy string, services *Services) *leaderboard.Boards {
	lb := config.Leaderboard
	var factory leaderboard.StoreFactory

	switch lb.Store {
	case "memory":
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: lb.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", lb.RedisAddr).Msg("redis unreachable, keeping leaderboards in files")
			client.Close()
			factory = fileStores(lb.Dir)
			break
		}
		services.closers = append(services.closers, client.Close)
		factory = func(policy string) leaderboard.SnapshotStore {
			return leaderboard.NewRedisStore(client, lb.RedisKey+":"+policy)
		}
	default:
		factory = fileStores(lb.Dir)
	}
	boards := leaderboard.NewBoards(clock, config.LeaderboardConfig(), factory)

	if policy == "" {
		policy = round.DefaultSettings().Policy
	}
	p, err := scoring.Lookup(policy)
	if err != nil {
		log.Warn().Err(err).Msg("default leaderboard not preloaded")
		return boards
	}
	boards.Preload(ctx, p)
	return boards
}

func fileStores(dir string) leaderboard.StoreFactory {
	return func(policy string) leaderboard.SnapshotStore {
		return leaderboard.NewFileStore(filepath.Join(dir, "leaderboard-"+policy+".json"))
	}
}
