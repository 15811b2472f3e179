package bus

import (
	"encoding/json"
	"fmt"
)

// Direction tells the receiver how to treat a message.
type Direction string

const (
	Request  Direction = "request"
	Response Direction = "response"
	Notify   Direction = "notify"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	switch d {
	case Request, Response, Notify:
		return true
	}
	return false
}

// Message is the envelope exchanged between the processes. ID is set for
// requests and echoed by responses; notifications carry no id.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Event     Event           `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Direction Direction       `json:"direction"`
}

func encodeMessage(m Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", m.Direction, m.Event, err)
	}
	return raw, nil
}

func decodeMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decoding frame: %w", err)
	}
	if !m.Direction.Valid() {
		return Message{}, fmt.Errorf("decoding frame: invalid direction %q", m.Direction)
	}
	if m.Event == "" {
		return Message{}, fmt.Errorf("decoding frame: missing event")
	}
	return m, nil
}

func encodePayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return raw, nil
}

// decodePayload fills the value produced by newFn. An empty payload leaves
// the zero value in place.
func decodePayload(raw json.RawMessage, newFn func() any) (any, error) {
	if newFn == nil {
		return nil, nil
	}
	v := newFn()
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return v, nil
}
