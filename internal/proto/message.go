// Package proto implements the newline-delimited JSON wire protocol:
// the message envelope, frame reassembly, field validation, and the
// constructors for every command, response, and event on the wire.
package proto

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the three message categories on the wire.
type Kind string

const (
	KindCommand  Kind = "command"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Command names (client -> server).
const (
	CmdNameConnect = "connect"
	CmdNameNick    = "nick"
	CmdNameList    = "list"
	CmdNameJoin    = "join"
	CmdNameLeave   = "leave"
	CmdNameMsg     = "msg"
	CmdNameHelp    = "help"
	CmdNameQuit    = "quit"
)

// Event names (server -> client).
const (
	EventNameMessage        = "message"
	EventNameUserJoined     = "user_joined"
	EventNameUserLeft       = "user_left"
	EventNameServerShutdown = "server_shutdown"
)

// Message is the in-memory representation of one protocol message.
// Data values must be JSON-representable. A Message is immutable once
// constructed; handlers build new ones instead of mutating.
type Message struct {
	Type Kind
	Name string
	Data map[string]any
}

// envelope is the wire form of Message.
type envelope struct {
	Type *string         `json:"type"`
	Name *string         `json:"name"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes the message to UTF-8 JSON followed by a single newline.
// It fails with ErrEncoding when data holds values the JSON encoder cannot
// represent.
func Encode(m *Message) ([]byte, error) {
	data := m.Data
	if data == nil {
		data = map[string]any{}
	}

	buf, err := json.Marshal(struct {
		Type Kind           `json:"type"`
		Name string         `json:"name"`
		Data map[string]any `json:"data"`
	}{m.Type, m.Name, data})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return append(buf, '\n'), nil
}

// Decode parses one frame (with or without its trailing newline) into a
// Message. It fails with ErrMalformedFrame on invalid JSON and ErrSchema when
// the envelope fields are missing or the type is unknown.
func Decode(frame []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrSchema)
	}
	kind := Kind(*env.Type)
	switch kind {
	case KindCommand, KindResponse, KindEvent:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrSchema, *env.Type)
	}

	if env.Name == nil || *env.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrSchema)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrSchema)
	}

	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: data is not an object", ErrSchema)
	}
	if data == nil {
		data = map[string]any{}
	}

	return &Message{Type: kind, Name: *env.Name, Data: data}, nil
}

// String returns a compact representation for logs.
func (m *Message) String() string {
	return fmt.Sprintf("%s/%s", m.Type, m.Name)
}

// Str returns the string value stored under key, or "" when absent or not a
// string.
func (m *Message) Str(key string) string {
	s, _ := m.Data[key].(string)
	return s
}
