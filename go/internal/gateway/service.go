package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// Transport feeds timer records into the router, e.g. a JetStream subscriber
// or a Postgres listener.
type Transport interface {
	Start(ctx context.Context) error
}

// Config holds configuration for the clock gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the clock gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// Service pushes timer records and round events to clock displays over WebSocket.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	stateProvider     StateProvider
	router            *timersync.Router
	transports        []Transport

	mu      sync.Mutex
	watches map[string]func()
}

// NewService creates a new clock gateway service. Records dispatched on router
// reach the displays of their room.
func NewService(config Config, stateProvider StateProvider, router *timersync.Router) *Service {
	s := &Service{
		stateProvider: stateProvider,
		router:        router,
		watches:       make(map[string]func()),
	}
	s.connectionManager = NewConnectionManager(config.ConnectionConfig, s)
	s.wsHandler = NewWebSocketHandler(s)
	s.stateHandler = NewStateHandler(stateProvider)
	return s
}

var _ timersync.EventPublisher = (*Service)(nil)

// AddTransport registers a transport to run with the service. Call before Start.
func (s *Service) AddTransport(t Transport) {
	s.transports = append(s.transports, t)
}

// Start runs the broadcaster and the transports until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Int("transports", len(s.transports)).Msg("starting clock gateway service")

	go s.connectionManager.Start(ctx)
	for _, t := range s.transports {
		go func(t Transport) {
			if err := t.Start(ctx); err != nil {
				log.Error().Err(err).Msg("timer transport failed")
			}
		}(t)
	}

	<-ctx.Done()
	s.mu.Lock()
	for room, unregister := range s.watches {
		unregister()
		delete(s.watches, room)
	}
	s.mu.Unlock()
	log.Info().Msg("clock gateway service stopped")
	return nil
}

// Watch attaches an observer for room to the router. Every record it applies
// is pushed to the room's displays; stale duplicates from a second transport
// are dropped by the observer.
func (s *Service) Watch(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[room]; ok {
		return
	}
	obs := timersync.NewObserver(nil, func(rec timersync.Record) {
		s.connectionManager.BroadcastToRoom(rec.RoomCode, timerMessage(rec))
	})
	s.watches[room] = s.router.Register(room, obs)
	log.Debug().Str("room_code", room).Msg("watching room timer")
}

// Unwatch detaches the observer of room.
func (s *Service) Unwatch(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if unregister, ok := s.watches[room]; ok {
		unregister()
		delete(s.watches, room)
		log.Debug().Str("room_code", room).Msg("stopped watching room timer")
	}
}

// PublishEvent pushes a round event to the displays of its room.
func (s *Service) PublishEvent(_ context.Context, ev timersync.Event) error {
	s.connectionManager.BroadcastToRoom(ev.RoomCode, eventMessage(ev))
	return nil
}

// HandleEvent is the event callback for broker subscribers.
func (s *Service) HandleEvent(ev timersync.Event) {
	s.connectionManager.BroadcastToRoom(ev.RoomCode, eventMessage(ev))
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("clock gateway routes registered")
}

// Stats returns statistics about connected displays
func (s *Service) Stats() Stats {
	return s.connectionManager.Stats()
}
