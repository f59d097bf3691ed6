package timersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is how often a display re-fetches the timer record.
const DefaultPollInterval = 2 * time.Second

// Poller re-fetches one room's record on an interval and applies it. It is the
// fallback when no push transport is available.
type Poller struct {
	clock    clockwork.Clock
	fetcher  Fetcher
	observer *Observer
	room     string
	interval time.Duration
}

func NewPoller(clock clockwork.Clock, fetcher Fetcher, observer *Observer, room string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		clock:    clock,
		fetcher:  fetcher,
		observer: observer,
		room:     room,
		interval: interval,
	}
}

// PollOnce fetches and applies the current record. It reports whether the
// record was applied.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	rec, err := p.fetcher.FetchTimer(ctx, p.room)
	if errors.Is(err, ErrNoRecord) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch timer record: %w", err)
	}
	return p.observer.Apply(rec), nil
}

// Run polls until ctx is cancelled. Fetch errors are logged and retried on the
// next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().
		Str("room_code", p.room).
		Dur("interval", p.interval).
		Msg("timer poller started")

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("room_code", p.room).Msg("timer poll failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Str("room_code", p.room).Msg("timer poller stopped")
			return nil
		case <-ticker.Chan():
		}
	}
}
