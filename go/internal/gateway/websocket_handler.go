package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/round"
)

// WebSocketHandler handles WebSocket upgrade requests of clock displays
type WebSocketHandler struct {
	service *Service
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
	}
}

// HandleClockConnection handles GET /ws/clock?room=CODE
func (h *WebSocketHandler) HandleClockConnection(w http.ResponseWriter, r *http.Request) {
	room := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("room")))
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	// Resolve the room before upgrading so unknown rooms get a plain 404.
	rec, err := h.service.stateProvider.GetTimer(r.Context(), &round.RoomRequest{RoomCode: room})
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room_code", room).Msg("failed to read timer")
		http.Error(w, "Failed to read timer", http.StatusInternalServerError)
		return
	}

	conn, err := h.service.connectionManager.UpgradeConnection(w, r, room)
	if err != nil {
		// The upgrader has already written the HTTP error.
		log.Error().Err(err).Str("room_code", room).Msg("failed to upgrade WebSocket connection")
		return
	}

	// A record newer than what the room's observer holds is broadcast to every
	// display of the room, this one included.
	if h.service.router.Dispatch(*rec) == 0 {
		h.service.connectionManager.SendTo(conn, timerMessage(*rec))
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.connectionManager.Stats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/clock", h.HandleClockConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
