package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Ralphbruens/Scoreboard/go/internal/leaderboard"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoreboard.yaml")
	yaml := `
server:
  port: "9090"
round:
  fields: 3
  bonus_scores: [0, 5, 10]
  policy: elapsed
  duration_seconds: 90
  remote_timeout: 2s
leaderboard:
  top_n: 5
  window_days: 3
  store: memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "")
	t.Setenv("SCORING_POLICY", "")
	t.Setenv("ROUND_DURATION_SECONDS", "60")
	t.Setenv("LEADERBOARD_STORE", "")

	config, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", config.Server.Port)
	}
	if config.Leaderboard.Store != "memory" {
		t.Errorf("store = %q, want memory", config.Leaderboard.Store)
	}

	appConfig, err := config.AppConfig()
	if err != nil {
		t.Fatal(err)
	}
	if appConfig.Defaults.Duration != 60*time.Second {
		t.Errorf("duration = %v, want env override 60s", appConfig.Defaults.Duration)
	}
	if diff := cmp.Diff([]int{0, 5, 10}, appConfig.Defaults.BonusScores); diff != "" {
		t.Errorf("bonus scores mismatch (-want +got):\n%s", diff)
	}
	if appConfig.RemoteTimeout != 2*time.Second {
		t.Errorf("remote timeout = %v", appConfig.RemoteTimeout)
	}

	want := leaderboard.Config{TopN: 5, Window: 72 * time.Hour, WindowN: 10}
	if diff := cmp.Diff(want, config.LeaderboardConfig()); diff != "" {
		t.Errorf("leaderboard config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LEADERBOARD_STORE", "")

	config, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if config.Server.Port != "8080" || config.Leaderboard.Store != "file" {
		t.Errorf("defaults not applied: %+v", config)
	}
}

func TestAppConfigInvalidTimeout(t *testing.T) {
	var config Config
	config.Round.RemoteTimeout = "soon"
	if _, err := config.AppConfig(); err == nil {
		t.Error("AppConfig() accepted an invalid remote_timeout")
	}
}
