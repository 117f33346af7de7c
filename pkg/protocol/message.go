// Package protocol defines the wire messages exchanged with a live intake
// session.
package protocol

import (
	"time"
)

// MessageType identifies the type of protocol message.
type MessageType uint8

const (
	// MsgEvent is sent by the client for user interactions.
	MsgEvent MessageType = iota
	// MsgState carries the full wizard view after an event.
	MsgState
	// MsgError reports a rejected event; the state is unchanged.
	MsgError
	// MsgHeartbeat is sent for connection keepalive.
	MsgHeartbeat
)

// String returns a string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MsgEvent:
		return "event"
	case MsgState:
		return "state"
	case MsgError:
		return "error"
	case MsgHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Message represents a protocol message exchanged between client and server.
type Message struct {
	// Type identifies what kind of message this is
	Type MessageType `json:"t" msgpack:"t"`

	// Ref correlates a reply with the client event that caused it
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the session this message belongs to (e.g., "intake:<socket-id>")
	Topic string `json:"topic" msgpack:"topic"`

	// Event is the specific event name (e.g., "change", "submit")
	Event string `json:"event,omitempty" msgpack:"event,omitempty"`

	// Payload contains the message data
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp when the message was created, in Unix milliseconds
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a new message with the given parameters.
func NewMessage(msgType MessageType, topic, event string) *Message {
	return &Message{
		Type:      msgType,
		Topic:     topic,
		Event:     event,
		Payload:   make(map[string]any),
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef adds a reference ID to the message.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// WithPayload sets the message payload.
func (m *Message) WithPayload(payload map[string]any) *Message {
	m.Payload = payload
	return m
}

// SetPayloadValue sets a single value in the payload.
func (m *Message) SetPayloadValue(key string, value any) *Message {
	if m.Payload == nil {
		m.Payload = make(map[string]any)
	}
	m.Payload[key] = value
	return m
}

// GetPayloadString retrieves a string value from the payload.
func (m *Message) GetPayloadString(key string) string {
	if m.Payload == nil {
		return ""
	}
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload. MessagePack
// decodes small integers into narrow types, so every integer width is
// accepted.
func (m *Message) GetPayloadInt(key string) int64 {
	if m.Payload == nil {
		return 0
	}
	switch v := m.Payload[key].(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// GetPayloadBytes retrieves binary data from the payload. MessagePack
// carries raw bytes; JSON clients send base64 text.
func (m *Message) GetPayloadBytes(key string) ([]byte, error) {
	if m.Payload == nil {
		return nil, nil
	}
	switch v := m.Payload[key].(type) {
	case []byte:
		return v, nil
	case string:
		return decodeBase64(v)
	default:
		return nil, nil
	}
}

// IsState returns true if this message carries a state snapshot.
func (m *Message) IsState() bool {
	return m.Type == MsgState
}

// IsError returns true if this message is an error.
func (m *Message) IsError() bool {
	return m.Type == MsgError
}

// IsHeartbeat returns true if this is a heartbeat message.
func (m *Message) IsHeartbeat() bool {
	return m.Type == MsgHeartbeat
}

// StateMessage creates a state message answering ref.
func StateMessage(topic, ref string, state map[string]any) *Message {
	return NewMessage(MsgState, topic, "state").WithRef(ref).WithPayload(state)
}

// ErrorMessage creates an error message answering ref.
func ErrorMessage(topic, ref, reason string) *Message {
	return NewMessage(MsgError, topic, "error").WithRef(ref).SetPayloadValue("reason", reason)
}

// EventMessage creates a client event message.
func EventMessage(topic, event string, payload map[string]any) *Message {
	msg := NewMessage(MsgEvent, topic, event)
	if payload != nil {
		msg.Payload = payload
	}
	return msg
}

// HeartbeatMessage creates a heartbeat message.
func HeartbeatMessage(topic string) *Message {
	return NewMessage(MsgHeartbeat, topic, "heartbeat")
}
