package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RoomWatcher is told when a room gains its first or loses its last connection.
type RoomWatcher interface {
	Watch(room string)
	Unwatch(room string)
}

// ConnectionManager manages WebSocket connections of clock displays
type ConnectionManager struct {
	// Connection pools organized by room code
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	watcher  RoomWatcher

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a display
type Connection struct {
	ID       string
	RoomCode string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
	closeOnce   sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to a room
type BroadcastMessage struct {
	RoomCode string
	Message  *Message
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Displays are served from other origins (kiosk pages, file://)
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, watcher RoomWatcher) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		watcher:     watcher,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and registers it for room
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, room string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		RoomCode:    room,
		Conn:        conn,
		Send:        make(chan []byte, 64),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("room_code", room).
		Msg("display connected")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	first := cm.roomConnections[conn.RoomCode] == nil
	if first {
		cm.roomConnections[conn.RoomCode] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomCode][conn] = true
	// Watcher calls stay under the lock so watch and unwatch of a room never reorder.
	if first && cm.watcher != nil {
		cm.watcher.Watch(conn.RoomCode)
	}
	cm.mu.Unlock()
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.roomConnections[conn.RoomCode]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.roomConnections, conn.RoomCode)
		if cm.watcher != nil {
			cm.watcher.Unwatch(conn.RoomCode)
		}
	}
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("room_code", conn.RoomCode).
		Msg("display disconnected")
}

// BroadcastToRoom queues a message for every display of a room
func (cm *ConnectionManager) BroadcastToRoom(room string, msg *Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: room, Message: msg}:
	default:
		log.Warn().Str("room_code", room).Msg("broadcast channel full, dropping message")
	}
}

// SendTo writes a message to a single connection.
func (cm *ConnectionManager) SendTo(conn *Connection, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message")
		return
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.roomConnections[conn.RoomCode][conn] {
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections := cm.roomConnections[message.RoomCode]
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	var slow []*Connection
	cm.mu.RLock()
	for _, conn := range targets {
		if !cm.roomConnections[message.RoomCode][conn] {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.close()
	}

	log.Debug().
		Str("type", string(message.Message.Type)).
		Str("room_code", message.RoomCode).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// Stats returns the number of connections per room
func (cm *ConnectionManager) Stats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{Rooms: make(map[string]int, len(cm.roomConnections))}
	for room, connections := range cm.roomConnections {
		stats.Rooms[room] = len(connections)
		stats.TotalConnections += len(connections)
	}
	return stats
}

// Stats describes the connected displays.
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	Rooms            map[string]int `json:"rooms"`
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { c.Conn.Close() })
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed. Displays
// only listen; anything they send is ignored.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
