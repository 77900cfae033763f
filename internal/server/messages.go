package server

import (
	"encoding/json"
	"time"
)

// Event names shared with the browser client. Inbound events carry a JSON
// envelope {event, data}; outbound events reuse the same envelope.
const (
	EventSetup          = "setup"
	EventConnected      = "connected"
	EventJoinChat       = "join chat"
	EventSendMessage    = "send message"
	EventReceiveMessage = "receive message"
	EventTyping         = "typing"
	EventStopTyping     = "stop typing"
)

type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ServerEvent struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SetupPayload announces the connection's owning user.
type SetupPayload struct {
	Id string `json:"id"`
}

func NewServerEvent(event string, data any) *ServerEvent {
	return &ServerEvent{
		Event:     event,
		Data:      data,
		Timestamp: Now(),
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
