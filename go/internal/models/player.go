package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a participant checked in to one field of a round.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	FieldNumber int       `json:"fieldNumber"`
	BonusScore  int       `json:"bonusScore"` // seconds
	CheckedInAt time.Time `json:"checkinTime"`
}
