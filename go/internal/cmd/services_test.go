package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/Ralphbruens/Scoreboard/go/internal/leaderboard"
	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
)

func TestSetupBoardsRestoresDefaultPolicyAtStartup(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var config Config
	config.Leaderboard.Store = "file"
	config.Leaderboard.Dir = t.TempDir()

	path := filepath.Join(config.Leaderboard.Dir, "leaderboard-countdown.json")
	saved := leaderboard.NewRanker(fc, config.LeaderboardConfig(), scoring.Descending, leaderboard.NewFileStore(path))
	_, err := saved.Append(ctx, models.RaceResult{
		ID:          uuid.New(),
		PlayerID:    uuid.New(),
		Name:        "Ann",
		FieldNumber: 1,
		BrutoScore:  37,
		NettoScore:  42,
		CheckedInAt: fc.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	boards := setupBoards(ctx, fc, &config, "", &Services{})

	// The snapshot must already be in memory.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	entries := boards.For(ctx, scoring.CountdownPolicy{}).Entries()
	if len(entries) != 1 || entries[0].Name != "Ann" {
		t.Errorf("countdown board = %+v, want Ann restored at startup", entries)
	}
}
