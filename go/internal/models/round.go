package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the lifecycle state of a round.
type RoundStatus string

const (
	RoundStatusOpen      RoundStatus = "OPEN"
	RoundStatusRunning   RoundStatus = "RUNNING"
	RoundStatusClosed    RoundStatus = "CLOSED"
	RoundStatusPublished RoundStatus = "PUBLISHED"
)

// RoundSettings holds the per-round configuration.
type RoundSettings struct {
	Fields        int           `json:"fields"`
	BonusScores   []int         `json:"bonusScores"`
	Policy        string        `json:"policy"`
	Duration      time.Duration `json:"duration"`
	DisplayFormat string        `json:"displayFormat"`
}

// Round is one timed attempt spanning check-in through all players finishing.
// Players, Bonuses and Outcomes are indexed by field number - 1.
type Round struct {
	ID          uuid.UUID     `json:"id"`
	RoomCode    string        `json:"roomCode"`
	Status      RoundStatus   `json:"status"`
	Settings    RoundSettings `json:"settings"`
	StartTime   *time.Time    `json:"recordingStartTime,omitempty"`
	Players     []*Player     `json:"players"`
	Bonuses     []int         `json:"fieldBonuses"`
	Outcomes    []Outcome     `json:"brutoScores"`
	Results     []RaceResult  `json:"sessionResults"`
	LastUpdated int64         `json:"lastUpdated"` // unix milliseconds
}

// ActivePlayers returns the checked-in players in field order.
func (r *Round) ActivePlayers() []*Player {
	players := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

// FinishedCount returns how many checked-in players have a bruto score.
func (r *Round) FinishedCount() int {
	count := 0
	for i, p := range r.Players {
		if p != nil && r.Outcomes[i].IsFinished() {
			count++
		}
	}
	return count
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Round) Clone() *Round {
	c := *r
	if r.StartTime != nil {
		start := *r.StartTime
		c.StartTime = &start
	}
	c.Settings.BonusScores = append([]int(nil), r.Settings.BonusScores...)
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		if p != nil {
			player := *p
			c.Players[i] = &player
		}
	}
	c.Bonuses = append([]int(nil), r.Bonuses...)
	c.Outcomes = append([]Outcome(nil), r.Outcomes...)
	c.Results = append([]RaceResult(nil), r.Results...)
	return &c
}
