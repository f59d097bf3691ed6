package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Session struct {
	RoomCode  string
	RoundID   uuid.UUID
	Status    string
	Data      pqtype.NullRawMessage
	UpdatedAt int64
}

type Result struct {
	ID          uuid.UUID
	RoomCode    string
	RoundID     uuid.UUID
	PlayerID    uuid.UUID
	PlayerName  string
	FieldNumber int32
	CheckinTime time.Time
	BonusScore  int32
	BrutoScore  int64
	NettoScore  int64
	Policy      string
	AutoStopped bool
	FinishedAt  time.Time
	CreatedAt   time.Time
}

type TimerSync struct {
	RoomCode   string
	TimerState string
	StartTime  sql.NullTime
	UpdatedAt  int64
}
