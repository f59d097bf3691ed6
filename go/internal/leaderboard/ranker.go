package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
)

// Config holds the ranking and retention settings of a leaderboard.
type Config struct {
	TopN    int
	Window  time.Duration
	WindowN int
}

// DefaultConfig returns the standard top 10 / last 7 days / top 10 board.
func DefaultConfig() Config {
	return Config{
		TopN:    10,
		Window:  7 * 24 * time.Hour,
		WindowN: 10,
	}
}

// Snapshot is the persisted pair of leaderboard views.
type Snapshot struct {
	TodayLeaderboard  []models.LeaderboardEntry `json:"todayLeaderboard"`
	WeeklyLeaderboard []models.LeaderboardEntry `json:"weeklyLeaderboard"`
}

// SnapshotStore persists leaderboard views.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

// Ranker keeps the unbounded result log for one scoring policy and derives the
// ranked top-N and trailing-window views from it.
type Ranker struct {
	clock     clockwork.Clock
	cfg       Config
	direction scoring.Direction
	store     SnapshotStore

	mu      sync.RWMutex
	entries []models.LeaderboardEntry
	seq     uint64
	views   Snapshot
}

// NewRanker creates an empty ranker. store may be nil for an in-memory board.
func NewRanker(clock clockwork.Clock, cfg Config, direction scoring.Direction, store SnapshotStore) *Ranker {
	return &Ranker{
		clock:     clock,
		cfg:       cfg,
		direction: direction,
		store:     store,
		views:     Snapshot{TodayLeaderboard: []models.LeaderboardEntry{}, WeeklyLeaderboard: []models.LeaderboardEntry{}},
	}
}

// Restore reloads the persisted views and seeds the log from them.
func (r *Ranker) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snapshot, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	r.entries = r.entries[:0]
	for _, view := range [][]models.LeaderboardEntry{snapshot.TodayLeaderboard, snapshot.WeeklyLeaderboard} {
		for _, e := range view {
			key := entryKey(e)
			if seen[key] {
				continue
			}
			seen[key] = true
			r.entries = append(r.entries, e)
			if e.Seq > r.seq {
				r.seq = e.Seq
			}
		}
	}
	r.rebuildLocked()

	log.Info().
		Int("entries", len(r.entries)).
		Str("direction", r.direction.String()).
		Msg("leaderboard restored")
	return nil
}

// Append records results on the board, re-ranks both views and persists them.
// The returned views are valid even when persisting fails.
func (r *Ranker) Append(ctx context.Context, results ...models.RaceResult) (Snapshot, error) {
	r.mu.Lock()
	now := r.clock.Now()
	for _, res := range results {
		r.seq++
		r.entries = append(r.entries, models.LeaderboardEntry{
			RaceResult: res,
			Date:       now.Format(time.DateOnly),
			Timestamp:  now.UnixMilli(),
			Seq:        r.seq,
		})
	}
	r.rebuildLocked()
	views := r.copyViewsLocked()
	r.mu.Unlock()

	if r.store == nil {
		return views, nil
	}
	if err := r.store.Save(ctx, views); err != nil {
		log.Error().Err(err).Msg("failed to persist leaderboard")
		return views, fmt.Errorf("failed to persist leaderboard: %w", err)
	}
	return views, nil
}

// Views returns the current ranked views, re-filtering the window against the clock.
func (r *Ranker) Views() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuildLocked()
	return r.copyViewsLocked()
}

// Entries returns the full result log in rank order.
func (r *Ranker) Entries() []models.LeaderboardEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LeaderboardEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Direction returns the ranking direction of this board.
func (r *Ranker) Direction() scoring.Direction {
	return r.direction
}

func (r *Ranker) rebuildLocked() {
	SortEntries(r.entries, r.direction)

	r.views.TodayLeaderboard = truncate(r.entries, r.cfg.TopN)

	cutoff := r.clock.Now().Add(-r.cfg.Window).UnixMilli()
	windowed := make([]models.LeaderboardEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Timestamp >= cutoff {
			windowed = append(windowed, e)
		}
	}
	r.views.WeeklyLeaderboard = truncate(windowed, r.cfg.WindowN)
}

func (r *Ranker) copyViewsLocked() Snapshot {
	return Snapshot{
		TodayLeaderboard:  append([]models.LeaderboardEntry{}, r.views.TodayLeaderboard...),
		WeeklyLeaderboard: append([]models.LeaderboardEntry{}, r.views.WeeklyLeaderboard...),
	}
}

// SortEntries orders entries by netto score in the given direction. Equal scores
// are broken by earlier check-in, then by arrival order.
func SortEntries(entries []models.LeaderboardEntry, direction scoring.Direction) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.NettoScore != b.NettoScore {
			return scoring.Better(direction, a.NettoScore, b.NettoScore)
		}
		if !a.CheckedInAt.Equal(b.CheckedInAt) {
			return a.CheckedInAt.Before(b.CheckedInAt)
		}
		return a.Seq < b.Seq
	})
}

// SortResults orders session results the same way as leaderboard entries.
func SortResults(results []models.RaceResult, direction scoring.Direction) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.NettoScore != b.NettoScore {
			return scoring.Better(direction, a.NettoScore, b.NettoScore)
		}
		return a.CheckedInAt.Before(b.CheckedInAt)
	})
}

func truncate(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if n <= 0 || len(entries) <= n {
		return append([]models.LeaderboardEntry{}, entries...)
	}
	return append([]models.LeaderboardEntry{}, entries[:n]...)
}

func entryKey(e models.LeaderboardEntry) string {
	return fmt.Sprintf("%s/%d", e.ID, e.Seq)
}
