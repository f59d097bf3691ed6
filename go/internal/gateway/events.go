package gateway

import (
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// MessageType distinguishes the frames pushed to display clients.
type MessageType string

const (
	MessageTypeTimer MessageType = "timer"
	MessageTypeEvent MessageType = "event"
)

// Message is one frame on the clock WebSocket.
type Message struct {
	Type     MessageType       `json:"type"`
	RoomCode string            `json:"roomCode"`
	Timer    *timersync.Record `json:"timer,omitempty"`
	Event    *timersync.Event  `json:"event,omitempty"`
}

func timerMessage(rec timersync.Record) *Message {
	return &Message{Type: MessageTypeTimer, RoomCode: rec.RoomCode, Timer: &rec}
}

func eventMessage(ev timersync.Event) *Message {
	return &Message{Type: MessageTypeEvent, RoomCode: ev.RoomCode, Event: &ev}
}
