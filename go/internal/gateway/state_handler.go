package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Ralphbruens/Scoreboard/go/internal/round"
)

// StateHandler handles HTTP requests for room state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetRoomState handles GET /api/rooms/{code}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	state, err := h.stateProvider.GetState(r.Context(), &round.RoomRequest{RoomCode: code})
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	writeJSON(w, state)
}

// HandleExportRoom handles GET /api/rooms/{code}/export
func (h *StateHandler) HandleExportRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	export, err := h.stateProvider.Export(r.Context(), &round.RoomRequest{RoomCode: code})
	if err != nil {
		h.writeError(w, code, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	writeJSON(w, export.Document)
}

// HandleGetTimer handles GET /api/rooms/{code}/timer, the polling fallback of displays
func (h *StateHandler) HandleGetTimer(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	rec, err := h.stateProvider.GetTimer(r.Context(), &round.RoomRequest{RoomCode: code})
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	writeJSON(w, rec)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{code}/state", h.HandleGetRoomState)
	mux.HandleFunc("GET /api/rooms/{code}/export", h.HandleExportRoom)
	mux.HandleFunc("GET /api/rooms/{code}/timer", h.HandleGetTimer)
}

func (h *StateHandler) writeError(w http.ResponseWriter, code string, err error) {
	if isNotFound(err) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	log.Error().Err(err).Str("room_code", code).Msg("failed to read room")
	http.Error(w, "Failed to read room", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
