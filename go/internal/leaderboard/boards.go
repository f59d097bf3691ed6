package leaderboard

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
)

// StoreFactory returns the snapshot store for a policy's board.
type StoreFactory func(policy string) SnapshotStore

// Boards holds one ranker per scoring policy so scores of different policies
// are never ranked against each other.
type Boards struct {
	clock    clockwork.Clock
	cfg      Config
	newStore StoreFactory

	mu      sync.Mutex
	rankers map[string]*Ranker
}

// NewBoards creates an empty registry. newStore may be nil for in-memory boards.
func NewBoards(clock clockwork.Clock, cfg Config, newStore StoreFactory) *Boards {
	return &Boards{
		clock:    clock,
		cfg:      cfg,
		newStore: newStore,
		rankers:  make(map[string]*Ranker),
	}
}

// For returns the board of policy, creating and restoring it on first use.
func (b *Boards) For(ctx context.Context, policy scoring.Policy) *Ranker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.rankers[policy.Name()]; ok {
		return r
	}

	var store SnapshotStore
	if b.newStore != nil {
		store = b.newStore(policy.Name())
	}
	r := NewRanker(b.clock, b.cfg, policy.Direction(), store)
	if err := r.Restore(ctx); err != nil {
		log.Error().Err(err).Str("policy", policy.Name()).Msg("starting with empty leaderboard")
	}
	b.rankers[policy.Name()] = r
	return r
}

// Preload creates and restores the boards of policies up front, so snapshots
// are reloaded at startup instead of on the first publish.
func (b *Boards) Preload(ctx context.Context, policies ...scoring.Policy) {
	for _, policy := range policies {
		b.For(ctx, policy)
	}
}
