package models

import (
	"time"

	"github.com/google/uuid"
)

// RaceResult is the immutable score of one player in one round.
type RaceResult struct {
	ID          uuid.UUID `json:"id"`
	RoundID     uuid.UUID `json:"roundId"`
	PlayerID    uuid.UUID `json:"playerId"`
	Name        string    `json:"name"`
	FieldNumber int       `json:"fieldNumber"`
	BrutoScore  int64     `json:"brutoScore"`
	BonusScore  int       `json:"bonusScore"`
	NettoScore  int64     `json:"nettoScore"`
	Policy      string    `json:"policy"`
	CheckedInAt time.Time `json:"checkinTime"`
	FinishedAt  time.Time `json:"finishedAt"`
	AutoStopped bool      `json:"autoStopped,omitempty"`
}

// LeaderboardEntry is a RaceResult tagged with the time it was recorded on the board.
type LeaderboardEntry struct {
	RaceResult
	Date      string `json:"date"`      // YYYY-MM-DD
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Seq       uint64 `json:"seq"`
}
