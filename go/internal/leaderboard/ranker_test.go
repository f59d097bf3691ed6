package leaderboard

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
)

var base = time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)

func result(name string, netto int64, checkin time.Time) models.RaceResult {
	return models.RaceResult{
		ID:          uuid.New(),
		PlayerID:    uuid.New(),
		Name:        name,
		FieldNumber: 1,
		BrutoScore:  netto,
		NettoScore:  netto,
		CheckedInAt: checkin,
	}
}

func names(entries []models.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestAppendKeepsBestTen(t *testing.T) {
	tests := []struct {
		name      string
		direction scoring.Direction
		dropped   string
	}{
		{name: "ascending drops the highest", direction: scoring.Ascending, dropped: "p10"},
		{name: "descending drops the lowest", direction: scoring.Descending, dropped: "p0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clockwork.NewFakeClockAt(base)
			r := NewRanker(fc, DefaultConfig(), tt.direction, nil)

			for i := 0; i <= 10; i++ {
				if _, err := r.Append(context.Background(), result(fmt.Sprintf("p%d", i), int64(i*100), base)); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			views := r.Views()
			if len(views.TodayLeaderboard) != 10 {
				t.Fatalf("top view has %d entries, want 10", len(views.TodayLeaderboard))
			}
			for _, e := range views.TodayLeaderboard {
				if e.Name == tt.dropped {
					t.Fatalf("%s should have been truncated", tt.dropped)
				}
			}
			if len(r.Entries()) != 11 {
				t.Fatalf("log has %d entries, want 11", len(r.Entries()))
			}
		})
	}
}

func TestWindowExcludesOldEntries(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	r := NewRanker(fc, DefaultConfig(), scoring.Ascending, nil)
	ctx := context.Background()

	if _, err := r.Append(ctx, result("old", 100, base)); err != nil {
		t.Fatal(err)
	}
	fc.Advance(8 * 24 * time.Hour)
	views, err := r.Append(ctx, result("fresh", 200, fc.Now()))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"fresh"}, names(views.WeeklyLeaderboard)); diff != "" {
		t.Errorf("weekly view mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"old", "fresh"}, names(views.TodayLeaderboard)); diff != "" {
		t.Errorf("top view mismatch (-want +got):\n%s", diff)
	}
	if len(r.Entries()) != 2 {
		t.Errorf("log lost an entry: %v", names(r.Entries()))
	}
}

func TestTieBreak(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	r := NewRanker(fc, DefaultConfig(), scoring.Descending, nil)

	late := result("late", 40, base.Add(time.Minute))
	early := result("early", 40, base)
	second := result("second", 40, base)

	views, err := r.Append(context.Background(), late, early, second)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"early", "second", "late"}, names(views.TodayLeaderboard)); diff != "" {
		t.Errorf("tie-break mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreFromFileStore(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	store := NewFileStore(filepath.Join(t.TempDir(), "boards", "countdown.json"))
	ctx := context.Background()

	r := NewRanker(fc, DefaultConfig(), scoring.Descending, store)
	if _, err := r.Append(ctx, result("ann", 42, base), result("bob", 50, base)); err != nil {
		t.Fatal(err)
	}

	restored := NewRanker(fc, DefaultConfig(), scoring.Descending, store)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(names(r.Views().TodayLeaderboard), names(restored.Views().TodayLeaderboard)); diff != "" {
		t.Errorf("restored board mismatch (-want +got):\n%s", diff)
	}

	// Sequence numbers continue after the restored entries.
	views, err := restored.Append(ctx, result("cat", 45, base))
	if err != nil {
		t.Fatal(err)
	}
	if got := views.TodayLeaderboard[1]; got.Name != "cat" || got.Seq != 3 {
		t.Errorf("appended entry = %s seq %d, want cat seq 3", got.Name, got.Seq)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.TodayLeaderboard) != 0 || len(snapshot.WeeklyLeaderboard) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestBoardsSeparatePolicies(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	boards := NewBoards(fc, DefaultConfig(), nil)
	ctx := context.Background()

	countdownBoard := boards.For(ctx, scoring.CountdownPolicy{})
	elapsedBoard := boards.For(ctx, scoring.ElapsedPolicy{})
	if countdownBoard == elapsedBoard {
		t.Fatal("policies must not share a board")
	}
	if boards.For(ctx, scoring.CountdownPolicy{}) != countdownBoard {
		t.Fatal("board should be reused")
	}
	if countdownBoard.Direction() != scoring.Descending || elapsedBoard.Direction() != scoring.Ascending {
		t.Fatal("board direction does not follow the policy")
	}
}

type countingStore struct {
	loads    int
	snapshot Snapshot
}

func (s *countingStore) Load(context.Context) (Snapshot, error) {
	s.loads++
	return s.snapshot, nil
}

func (s *countingStore) Save(_ context.Context, snapshot Snapshot) error {
	s.snapshot = snapshot
	return nil
}

func TestBoardsPreloadRestoresOnce(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	ctx := context.Background()
	stores := make(map[string]*countingStore)
	boards := NewBoards(fc, DefaultConfig(), func(policy string) SnapshotStore {
		s := &countingStore{}
		stores[policy] = s
		return s
	})

	boards.Preload(ctx, scoring.CountdownPolicy{})
	if s := stores[scoring.PolicyCountdown]; s == nil || s.loads != 1 {
		t.Fatalf("countdown board not restored by Preload: %+v", s)
	}
	if _, ok := stores[scoring.PolicyElapsed]; ok {
		t.Error("elapsed board restored without being asked for")
	}

	boards.For(ctx, scoring.CountdownPolicy{})
	if got := stores[scoring.PolicyCountdown].loads; got != 1 {
		t.Errorf("loads after For = %d, want 1", got)
	}
}
