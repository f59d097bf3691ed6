package round

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/round/db"
	"github.com/Ralphbruens/Scoreboard/go/internal/sqlutil"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	UpsertSession(ctx context.Context, arg db.UpsertSessionParams) error
	GetSession(ctx context.Context, roomCode string) (db.Session, error)
	InsertResult(ctx context.Context, arg db.InsertResultParams) error
	ListResultsByRoom(ctx context.Context, roomCode string) ([]db.Result, error)
	UpsertTimerSync(ctx context.Context, arg db.UpsertTimerSyncParams) error
	GetTimerSync(ctx context.Context, roomCode string) (db.TimerSync, error)
	WithTx(tx *sql.Tx) *db.Queries
}

var _ Querier = (*db.Queries)(nil)

// Repository stores sessions, results and timer records in Postgres.
type Repository struct {
	conn    *sql.DB
	queries Querier
}

// NewRepository creates a new round repository
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		conn:    conn,
		queries: db.New(conn),
	}
}

var _ SessionStore = (*Repository)(nil)

// SaveSession writes the session record. Older versions never replace newer ones.
func (r *Repository) SaveSession(ctx context.Context, round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = r.queries.UpsertSession(ctx, db.UpsertSessionParams{
		RoomCode:  round.RoomCode,
		RoundID:   round.ID,
		Status:    string(round.Status),
		Data:      pqtype.NullRawMessage{RawMessage: data, Valid: true},
		UpdatedAt: round.LastUpdated,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession reads the session record of roomCode.
func (r *Repository) LoadSession(ctx context.Context, roomCode string) (*models.Round, error) {
	row, err := r.queries.GetSession(ctx, roomCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !row.Data.Valid {
		return nil, ErrSessionNotFound
	}

	var round models.Round
	if err := json.Unmarshal(row.Data.RawMessage, &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	round.LastUpdated = row.UpdatedAt
	return &round, nil
}

// InsertResults writes the results of a round in one transaction.
func (r *Repository) InsertResults(ctx context.Context, roomCode string, results []models.RaceResult) error {
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		for _, res := range results {
			if err := q.InsertResult(ctx, resultToParams(roomCode, res)); err != nil {
				return fmt.Errorf("failed to insert result for %s: %w", res.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert results: %w", err)
	}
	return nil
}

// ListResults returns the stored results of roomCode.
func (r *Repository) ListResults(ctx context.Context, roomCode string) ([]models.RaceResult, error) {
	rows, err := r.queries.ListResultsByRoom(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	results := make([]models.RaceResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, dbResultToModel(row))
	}
	return results, nil
}

// PublishTimer upserts the timer_sync row; the table trigger notifies listeners.
func (r *Repository) PublishTimer(ctx context.Context, rec timersync.Record) error {
	err := r.queries.UpsertTimerSync(ctx, db.UpsertTimerSyncParams{
		RoomCode:   rec.RoomCode,
		TimerState: string(rec.State),
		StartTime:  sqlutil.ToSqlTime(rec.StartTime),
		UpdatedAt:  rec.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert timer sync: %w", err)
	}
	return nil
}

// FetchTimer reads the timer_sync row of roomCode.
func (r *Repository) FetchTimer(ctx context.Context, roomCode string) (timersync.Record, error) {
	row, err := r.queries.GetTimerSync(ctx, roomCode)
	if errors.Is(err, sql.ErrNoRows) {
		return timersync.Record{}, timersync.ErrNoRecord
	}
	if err != nil {
		return timersync.Record{}, fmt.Errorf("failed to get timer sync: %w", err)
	}
	return timersync.Record{
		RoomCode:  row.RoomCode,
		State:     timersync.State(row.TimerState),
		StartTime: sqlutil.FromSqlTime(row.StartTime),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func resultToParams(roomCode string, res models.RaceResult) db.InsertResultParams {
	return db.InsertResultParams{
		ID:          res.ID,
		RoomCode:    roomCode,
		RoundID:     res.RoundID,
		PlayerID:    res.PlayerID,
		PlayerName:  res.Name,
		FieldNumber: int32(res.FieldNumber),
		CheckinTime: res.CheckedInAt,
		BonusScore:  int32(res.BonusScore),
		BrutoScore:  res.BrutoScore,
		NettoScore:  res.NettoScore,
		Policy:      res.Policy,
		AutoStopped: res.AutoStopped,
		FinishedAt:  res.FinishedAt,
	}
}

func dbResultToModel(row db.Result) models.RaceResult {
	return models.RaceResult{
		ID:          row.ID,
		RoundID:     row.RoundID,
		PlayerID:    row.PlayerID,
		Name:        row.PlayerName,
		FieldNumber: int(row.FieldNumber),
		BrutoScore:  row.BrutoScore,
		BonusScore:  int(row.BonusScore),
		NettoScore:  row.NettoScore,
		Policy:      row.Policy,
		CheckedInAt: row.CheckinTime,
		FinishedAt:  row.FinishedAt,
		AutoStopped: row.AutoStopped,
	}
}
