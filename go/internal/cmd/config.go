package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ralphbruens/Scoreboard/go/internal/leaderboard"
	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/round"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Round struct {
		Fields          int    `yaml:"fields"`
		BonusScores     []int  `yaml:"bonus_scores"`
		Policy          string `yaml:"policy"`
		DurationSeconds int    `yaml:"duration_seconds"`
		DisplayFormat   string `yaml:"display_format"`
		RemoteTimeout   string `yaml:"remote_timeout"`
	} `yaml:"round"`

	Leaderboard struct {
		TopN       int    `yaml:"top_n"`
		WindowDays int    `yaml:"window_days"`
		WindowN    int    `yaml:"window_n"`
		Store      string `yaml:"store"` // memory, file or redis
		Dir        string `yaml:"dir"`
		RedisAddr  string `yaml:"redis_addr"`
		RedisKey   string `yaml:"redis_key"`
	} `yaml:"leaderboard"`

	Sync struct {
		NATSURL string `yaml:"nats_url"`
		Listen  bool   `yaml:"listen"`
	} `yaml:"sync"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", orDefault(config.Server.Port, "8080"))
	config.Round.DurationSeconds = getEnvAsInt("ROUND_DURATION_SECONDS", config.Round.DurationSeconds)
	config.Round.Policy = getEnv("SCORING_POLICY", config.Round.Policy)
	config.Leaderboard.Store = getEnv("LEADERBOARD_STORE", orDefault(config.Leaderboard.Store, "file"))
	config.Leaderboard.Dir = getEnv("LEADERBOARD_DIR", orDefault(config.Leaderboard.Dir, "data"))
	config.Leaderboard.RedisAddr = getEnv("REDIS_ADDR", orDefault(config.Leaderboard.RedisAddr, "localhost:6379"))
	config.Leaderboard.RedisKey = getEnv("REDIS_KEY", orDefault(config.Leaderboard.RedisKey, "scoreboard:leaderboard"))
	config.Sync.NATSURL = getEnv("NATS_URL", config.Sync.NATSURL)
	config.Sync.Listen = getEnvAsBool("SYNC_LISTEN", config.Sync.Listen)
	return &config, nil
}

// AppConfig converts the round section, leaving zero values to the app defaults.
func (c *Config) AppConfig() (round.AppConfig, error) {
	cfg := round.AppConfig{
		Defaults: models.RoundSettings{
			Fields:        c.Round.Fields,
			BonusScores:   c.Round.BonusScores,
			Policy:        c.Round.Policy,
			Duration:      time.Duration(c.Round.DurationSeconds) * time.Second,
			DisplayFormat: c.Round.DisplayFormat,
		},
	}
	if c.Round.RemoteTimeout != "" {
		d, err := time.ParseDuration(c.Round.RemoteTimeout)
		if err != nil {
			return round.AppConfig{}, fmt.Errorf("invalid remote_timeout: %w", err)
		}
		cfg.RemoteTimeout = d
	}
	return cfg, nil
}

func (c *Config) LeaderboardConfig() leaderboard.Config {
	cfg := leaderboard.DefaultConfig()
	if c.Leaderboard.TopN > 0 {
		cfg.TopN = c.Leaderboard.TopN
	}
	if c.Leaderboard.WindowDays > 0 {
		cfg.Window = time.Duration(c.Leaderboard.WindowDays) * 24 * time.Hour
	}
	if c.Leaderboard.WindowN > 0 {
		cfg.WindowN = c.Leaderboard.WindowN
	}
	return cfg
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
