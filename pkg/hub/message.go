// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// Event types published on the feed.
const (
	EventSighting = "sighting"
	EventState    = "state"
)

// Event is the envelope for everything sent to /ws/events clients.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ string, data any) Event {
	return Event{Type: typ, Time: time.Now().UTC(), Data: data}
}

// Encode marshals the event into a broadcastable message.
func (e Event) Encode() (Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
