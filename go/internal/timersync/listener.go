package timersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to re-fetch watched rooms
	PingInterval     time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "timer_sync_changed",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// PGListener receives timer_sync change notifications from Postgres. The
// notification payload is the room code; the record itself is re-read through
// the Fetcher and dispatched to the router.
type PGListener struct {
	listener *pq.Listener
	fetcher  Fetcher
	router   *Router
	cfg      ListenerConfig
}

func NewPGListener(fetcher Fetcher, router *Router, cfg ListenerConfig) (*PGListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for timer notifications")

	return &PGListener{
		listener: l,
		fetcher:  fetcher,
		router:   router,
		cfg:      cfg,
	}, nil
}

func (l *PGListener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established; catch up
				l.refreshAll(ctx)
				continue
			}
			if err := l.refresh(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle timer notification")
			}
		case <-fallbackTicker.C:
			l.refreshAll(ctx)
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *PGListener) Stop() error {
	return l.listener.Close()
}

func (l *PGListener) refresh(ctx context.Context, room string) error {
	if room == "" {
		return fmt.Errorf("empty room code in notification")
	}
	rec, err := l.fetcher.FetchTimer(ctx, room)
	if errors.Is(err, ErrNoRecord) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch timer record: %w", err)
	}
	applied := l.router.Dispatch(rec)
	log.Debug().
		Str("room_code", room).
		Int("applied", applied).
		Msg("timer notification dispatched")
	return nil
}

func (l *PGListener) refreshAll(ctx context.Context) {
	for _, room := range l.router.Rooms() {
		if err := l.refresh(ctx, room); err != nil {
			log.Error().Err(err).Str("room_code", room).Msg("failed to refresh timer record")
		}
	}
}
