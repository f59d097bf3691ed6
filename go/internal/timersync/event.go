package timersync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names a round event that travels alongside timer records.
type EventType string

const (
	EventPlayerCheckedIn  EventType = "player_checked_in"
	EventPlayerFinished   EventType = "player_finished"
	EventRoundClosed      EventType = "round_closed"
	EventResultsPublished EventType = "results_published"
	EventRoundReset       EventType = "round_reset"
)

// Event is a round change pushed to displays.
type Event struct {
	ID        uuid.UUID       `json:"eventId"`
	Type      EventType       `json:"eventType"`
	RoomCode  string          `json:"roomCode"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a fresh id. payload is marshalled as JSON.
func NewEvent(room string, typ EventType, at time.Time, payload any) (Event, error) {
	ev := Event{
		ID:        uuid.New(),
		Type:      typ,
		RoomCode:  room,
		Timestamp: at.UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = data
	}
	return ev, nil
}

// EventPublisher pushes round events to displays.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(ctx context.Context, ev Event) error

func (f EventPublisherFunc) PublishEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// MultiEventPublisher fans an event out to several publishers.
type MultiEventPublisher []EventPublisher

func (m MultiEventPublisher) PublishEvent(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishEvent(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
