package timersync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the published state of a round timer.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// ErrNoRecord is returned by a Fetcher when a room has never published a timer record.
var ErrNoRecord = errors.New("no timer record")

// Record is the timer-sync message every display reconciles to.
type Record struct {
	RoomCode  string     `json:"room_code"`
	State     State      `json:"timer_state"`
	StartTime *time.Time `json:"start_time"`
	UpdatedAt int64      `json:"updated_at"` // unix milliseconds, logical version
}

// Running returns a running record for start stamped at updatedAt.
func Running(room string, start time.Time, updatedAt time.Time) Record {
	return Record{RoomCode: room, State: StateRunning, StartTime: &start, UpdatedAt: updatedAt.UnixMilli()}
}

// Stopped returns a stopped record. A nil start means the timer was reset.
func Stopped(room string, start *time.Time, updatedAt time.Time) Record {
	return Record{RoomCode: room, State: StateStopped, StartTime: start, UpdatedAt: updatedAt.UnixMilli()}
}

// Validate checks the record is self-consistent.
func (r Record) Validate() error {
	if r.RoomCode == "" {
		return fmt.Errorf("room code is required")
	}
	switch r.State {
	case StateRunning:
		if r.StartTime == nil {
			return fmt.Errorf("running record for room %s has no start time", r.RoomCode)
		}
	case StateStopped:
	default:
		return fmt.Errorf("unknown timer state %q", r.State)
	}
	return nil
}

// Fetcher reads the latest timer record of a room from a remote store.
type Fetcher interface {
	FetchTimer(ctx context.Context, roomCode string) (Record, error)
}

// Publisher writes a timer record to a transport.
type Publisher interface {
	PublishTimer(ctx context.Context, rec Record) error
}

// MultiPublisher fans a record out to several transports. Every transport is
// attempted; the errors are joined.
type MultiPublisher []Publisher

func (m MultiPublisher) PublishTimer(ctx context.Context, rec Record) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishTimer(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
