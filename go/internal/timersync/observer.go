package timersync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Reconciler is the local timer a record is applied to.
type Reconciler interface {
	Start(startTime time.Time)
	Stop()
}

// resetter is implemented by reconcilers that can clear their start time.
type resetter interface {
	Reset()
}

// Observer is the single reconciliation point for remote timer state. Every
// transport (push, poll) hands records to Apply.
type Observer struct {
	target  Reconciler
	onApply func(Record)

	mu          sync.Mutex
	lastUpdated int64
}

// NewObserver creates an observer. target and onApply may each be nil.
func NewObserver(target Reconciler, onApply func(Record)) *Observer {
	return &Observer{target: target, onApply: onApply}
}

// Apply reconciles rec if it is strictly newer than the last applied record.
// It returns false when the record was stale or invalid.
func (o *Observer) Apply(rec Record) bool {
	if err := rec.Validate(); err != nil {
		log.Warn().Err(err).Msg("dropping invalid timer record")
		return false
	}

	o.mu.Lock()
	if rec.UpdatedAt <= o.lastUpdated {
		o.mu.Unlock()
		log.Debug().
			Str("room_code", rec.RoomCode).
			Int64("updated_at", rec.UpdatedAt).
			Int64("last_updated", o.lastUpdated).
			Msg("ignoring stale timer record")
		return false
	}
	o.lastUpdated = rec.UpdatedAt

	if o.target != nil {
		switch {
		case rec.State == StateRunning:
			o.target.Start(*rec.StartTime)
		case rec.StartTime == nil:
			if r, ok := o.target.(resetter); ok {
				r.Reset()
			} else {
				o.target.Stop()
			}
		default:
			o.target.Stop()
		}
	}
	o.mu.Unlock()

	if o.onApply != nil {
		o.onApply(rec)
	}
	return true
}

// LastUpdated returns the version of the last applied record.
func (o *Observer) LastUpdated() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUpdated
}

// Router delivers records to the observers registered for their room.
type Router struct {
	mu        sync.RWMutex
	observers map[string]map[*Observer]bool
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{observers: make(map[string]map[*Observer]bool)}
}

// Register adds o for room and returns a function removing it again.
func (r *Router) Register(room string, o *Observer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.observers[room] == nil {
		r.observers[room] = make(map[*Observer]bool)
	}
	r.observers[room][o] = true

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers[room], o)
		if len(r.observers[room]) == 0 {
			delete(r.observers, room)
		}
	}
}

// Dispatch applies rec to every observer of its room and returns how many applied it.
func (r *Router) Dispatch(rec Record) int {
	r.mu.RLock()
	targets := make([]*Observer, 0, len(r.observers[rec.RoomCode]))
	for o := range r.observers[rec.RoomCode] {
		targets = append(targets, o)
	}
	r.mu.RUnlock()

	applied := 0
	for _, o := range targets {
		if o.Apply(rec) {
			applied++
		}
	}
	return applied
}

// Rooms returns the rooms with at least one observer.
func (r *Router) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]string, 0, len(r.observers))
	for room := range r.observers {
		rooms = append(rooms, room)
	}
	return rooms
}

// PublishTimer delivers rec to the in-process observers of its room.
func (r *Router) PublishTimer(_ context.Context, rec Record) error {
	r.Dispatch(rec)
	return nil
}
