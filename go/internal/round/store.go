package round

import (
	"context"
	"sync"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// SessionStore defines what the app layer needs from the remote records.
type SessionStore interface {
	SaveSession(ctx context.Context, r *models.Round) error
	LoadSession(ctx context.Context, roomCode string) (*models.Round, error)
	InsertResults(ctx context.Context, roomCode string, results []models.RaceResult) error
	ListResults(ctx context.Context, roomCode string) ([]models.RaceResult, error)
	PublishTimer(ctx context.Context, rec timersync.Record) error
	FetchTimer(ctx context.Context, roomCode string) (timersync.Record, error)
}

// MemoryStore keeps sessions in process. It backs offline mode.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Round
	results  map[string][]models.RaceResult
	timers   map[string]timersync.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Round),
		results:  make(map[string][]models.RaceResult),
		timers:   make(map[string]timersync.Record),
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, r *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[r.RoomCode] = r.Clone()
	return nil
}

func (s *MemoryStore) LoadSession(_ context.Context, roomCode string) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.sessions[roomCode]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) InsertResults(_ context.Context, roomCode string, results []models.RaceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[roomCode] = append(s.results[roomCode], results...)
	return nil
}

func (s *MemoryStore) ListResults(_ context.Context, roomCode string) ([]models.RaceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RaceResult(nil), s.results[roomCode]...), nil
}

// PublishTimer keeps the newest record per room.
func (s *MemoryStore) PublishTimer(_ context.Context, rec timersync.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[rec.RoomCode]; ok && cur.UpdatedAt >= rec.UpdatedAt {
		return nil
	}
	s.timers[rec.RoomCode] = rec
	return nil
}

func (s *MemoryStore) FetchTimer(_ context.Context, roomCode string) (timersync.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.timers[roomCode]
	if !ok {
		return timersync.Record{}, timersync.ErrNoRecord
	}
	return rec, nil
}
