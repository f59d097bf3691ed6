package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const upsertSession = `
INSERT INTO sessions (room_code, round_id, status, data, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (room_code) DO UPDATE
SET round_id = EXCLUDED.round_id,
    status = EXCLUDED.status,
    data = EXCLUDED.data,
    updated_at = EXCLUDED.updated_at
WHERE sessions.updated_at <= EXCLUDED.updated_at
`

type UpsertSessionParams struct {
	RoomCode  string
	RoundID   uuid.UUID
	Status    string
	Data      pqtype.NullRawMessage
	UpdatedAt int64
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession,
		arg.RoomCode,
		arg.RoundID,
		arg.Status,
		arg.Data,
		arg.UpdatedAt,
	)
	return err
}

const getSession = `
SELECT room_code, round_id, status, data, updated_at
FROM sessions
WHERE room_code = $1
`

func (q *Queries) GetSession(ctx context.Context, roomCode string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, roomCode)
	var i Session
	err := row.Scan(
		&i.RoomCode,
		&i.RoundID,
		&i.Status,
		&i.Data,
		&i.UpdatedAt,
	)
	return i, err
}

const insertResult = `
INSERT INTO results (
    id, room_code, round_id, player_id, player_name, field_number, checkin_time,
    bonus_score, bruto_score, netto_score, policy, auto_stopped, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING
`

type InsertResultParams struct {
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
}

func (q *Queries) InsertResult(ctx context.Context, arg InsertResultParams) error {
	_, err := q.db.ExecContext(ctx, insertResult,
		arg.ID,
		arg.RoomCode,
		arg.RoundID,
		arg.PlayerID,
		arg.PlayerName,
		arg.FieldNumber,
		arg.CheckinTime,
		arg.BonusScore,
		arg.BrutoScore,
		arg.NettoScore,
		arg.Policy,
		arg.AutoStopped,
		arg.FinishedAt,
	)
	return err
}

const listResultsByRoom = `
SELECT id, room_code, round_id, player_id, player_name, field_number, checkin_time,
       bonus_score, bruto_score, netto_score, policy, auto_stopped, finished_at, created_at
FROM results
WHERE room_code = $1
ORDER BY created_at, field_number
`

func (q *Queries) ListResultsByRoom(ctx context.Context, roomCode string) ([]Result, error) {
	rows, err := q.db.QueryContext(ctx, listResultsByRoom, roomCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Result
	for rows.Next() {
		var i Result
		if err := rows.Scan(
			&i.ID,
			&i.RoomCode,
			&i.RoundID,
			&i.PlayerID,
			&i.PlayerName,
			&i.FieldNumber,
			&i.CheckinTime,
			&i.BonusScore,
			&i.BrutoScore,
			&i.NettoScore,
			&i.Policy,
			&i.AutoStopped,
			&i.FinishedAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The WHERE clause keeps a late write from overwriting a newer record; the
// table trigger only fires NOTIFY when a row actually changes.
const upsertTimerSync = `
INSERT INTO timer_sync (room_code, timer_state, start_time, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (room_code) DO UPDATE
SET timer_state = EXCLUDED.timer_state,
    start_time = EXCLUDED.start_time,
    updated_at = EXCLUDED.updated_at
WHERE timer_sync.updated_at < EXCLUDED.updated_at
`

type UpsertTimerSyncParams struct {
	RoomCode   string
	TimerState string
	StartTime  sql.NullTime
	UpdatedAt  int64
}

func (q *Queries) UpsertTimerSync(ctx context.Context, arg UpsertTimerSyncParams) error {
	_, err := q.db.ExecContext(ctx, upsertTimerSync,
		arg.RoomCode,
		arg.TimerState,
		arg.StartTime,
		arg.UpdatedAt,
	)
	return err
}

const getTimerSync = `
SELECT room_code, timer_state, start_time, updated_at
FROM timer_sync
WHERE room_code = $1
`

func (q *Queries) GetTimerSync(ctx context.Context, roomCode string) (TimerSync, error) {
	row := q.db.QueryRowContext(ctx, getTimerSync, roomCode)
	var i TimerSync
	err := row.Scan(
		&i.RoomCode,
		&i.TimerState,
		&i.StartTime,
		&i.UpdatedAt,
	)
	return i, err
}
