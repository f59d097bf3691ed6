package round

import (
	"fmt"
	"time"

	"github.com/Ralphbruens/Scoreboard/go/internal/countdown"
	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/scoring"
)

const (
	ConnectionOnline  = "online"
	ConnectionOffline = "offline"

	maxFields = 20
)

// DefaultSettings returns the settings used when a room is created without any.
func DefaultSettings() models.RoundSettings {
	return models.RoundSettings{
		Fields:        5,
		BonusScores:   []int{5, 10, 15, 20, 25},
		Policy:        scoring.PolicyCountdown,
		Duration:      120 * time.Second,
		DisplayFormat: string(countdown.FormatCountdownName),
	}
}

// normalizeSettings fills zero values from defaults and validates the result.
func normalizeSettings(s models.RoundSettings, defaults models.RoundSettings) (models.RoundSettings, error) {
	if s.Fields == 0 {
		s.Fields = defaults.Fields
	}
	if len(s.BonusScores) == 0 {
		s.BonusScores = append([]int(nil), defaults.BonusScores...)
	}
	if s.Policy == "" {
		s.Policy = defaults.Policy
	}
	if s.Duration == 0 {
		s.Duration = defaults.Duration
	}
	if s.DisplayFormat == "" {
		s.DisplayFormat = defaults.DisplayFormat
	}

	if s.Fields < 1 || s.Fields > maxFields {
		return s, fmt.Errorf("%w: fields must be between 1 and %d", ErrInvalidSettings, maxFields)
	}
	// One bonus per field; missing fields get no bonus.
	bonuses := make([]int, s.Fields)
	copy(bonuses, s.BonusScores)
	s.BonusScores = bonuses
	if s.Duration <= 0 {
		return s, fmt.Errorf("%w: duration must be positive", ErrInvalidSettings)
	}
	for _, b := range s.BonusScores {
		if b < 0 {
			return s, fmt.Errorf("%w: bonus options must not be negative", ErrInvalidSettings)
		}
	}
	if _, err := scoring.Lookup(s.Policy); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if _, err := countdown.ParseFormat(s.DisplayFormat); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return s, nil
}

// FieldView is one field of the round as shown on the operator screen.
type FieldView struct {
	FieldNumber int    `json:"fieldNumber"`
	Name        string `json:"name,omitempty"`
	BonusScore  int    `json:"bonusScore"`
	CheckedIn   bool   `json:"checkedIn"`
	Finished    bool   `json:"finished"`
	BrutoScore  *int64 `json:"brutoScore"`
	NettoScore  *int64 `json:"nettoScore"`
	Display     string `json:"display,omitempty"`
}

// StateView is the complete read model of a room.
type StateView struct {
	RoomCode          string                    `json:"roomCode"`
	RoundID           string                    `json:"roundId"`
	Status            models.RoundStatus        `json:"status"`
	ConnectionStatus  string                    `json:"connectionStatus"`
	Settings          models.RoundSettings      `json:"settings"`
	Direction         string                    `json:"direction"`
	Timer             countdown.Snapshot        `json:"timer"`
	Fields            []FieldView               `json:"fields"`
	SessionResults    []models.RaceResult       `json:"sessionResults"`
	TodayLeaderboard  []models.LeaderboardEntry `json:"todayLeaderboard"`
	WeeklyLeaderboard []models.LeaderboardEntry `json:"weeklyLeaderboard"`
	LastUpdated       int64                     `json:"lastUpdated"`
}

// Response is the result of a mutating operation. Warnings carry remote-write
// failures; the local change has been applied regardless.
type Response struct {
	State    *StateView `json:"state"`
	Warnings []string   `json:"warnings,omitempty"`
}

// ExportDocument is the downloadable record of a session and its boards.
type ExportDocument struct {
	SessionResults    []models.RaceResult       `json:"sessionResults"`
	TodayLeaderboard  []models.LeaderboardEntry `json:"todayLeaderboard"`
	WeeklyLeaderboard []models.LeaderboardEntry `json:"weeklyLeaderboard"`
	ExportDate        time.Time                 `json:"exportDate"`
}

// Filename is the name the export is offered under.
func (d ExportDocument) Filename() string {
	return fmt.Sprintf("scoreboard-results-%s.json", d.ExportDate.Format("2006-01-02"))
}
