// internal/lobby/message.go
package lobby

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Message is the closed set of push messages exchanged over a lobby
// connection. The wire format is a JSON object tagged by a "type" field;
// adding a variant means adding a struct here and a case to DecodeMessage.
type Message interface {
	messageType() string
}

// LobbyUpdated carries a fresh lobby snapshot after any membership or
// metadata change. Outbound only.
type LobbyUpdated struct {
	Lobby *Lobby `json:"lobby"`
}

// DataMessage is an opaque unicast payload between two participants.
type DataMessage struct {
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Data       json.RawMessage `json:"data"`
}

// TextMessage is a chat line broadcast to the whole lobby.
type TextMessage struct {
	FromUserID string `json:"fromUserId"`
	Message    string `json:"message"`
}

// StatusMessage is a leader-only broadcast.
type StatusMessage struct {
	Message string `json:"message"`
}

// SetMetadataMessage asks the server to update one metadata entry.
// Inbound only.
type SetMetadataMessage struct {
	UserID string `json:"userId"`
	Key    string `json:"key"`
	Value  any    `json:"value"`
}

func (LobbyUpdated) messageType() string       { return "lobby-updated" }
func (DataMessage) messageType() string        { return "data" }
func (TextMessage) messageType() string        { return "text-message" }
func (StatusMessage) messageType() string      { return "status-message" }
func (SetMetadataMessage) messageType() string { return "set-metadata" }

// ErrUnknownMessageType is returned by DecodeMessage for unrecognized tags.
// The message router treats it as "ignore".
var ErrUnknownMessageType = fmt.Errorf("unknown message type")

// EncodeMessage serializes a message with its type tag.
func EncodeMessage(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"] = json.RawMessage(strconv.Quote(m.messageType()))
	return json.Marshal(fields)
}

// DecodeMessage parses a tagged message envelope.
func DecodeMessage(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "lobby-updated":
		var m LobbyUpdated
		return m, json.Unmarshal(data, &m)
	case "data":
		var m DataMessage
		return m, json.Unmarshal(data, &m)
	case "text-message":
		var m TextMessage
		return m, json.Unmarshal(data, &m)
	case "status-message":
		var m StatusMessage
		return m, json.Unmarshal(data, &m)
	case "set-metadata":
		var m SetMetadataMessage
		return m, json.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, head.Type)
	}
}
