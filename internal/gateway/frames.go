package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/tradetalk/tradetalk/internal/domain"
)

// Frame type tags on the wire.
const (
	FrameTypeChat  = "chat"
	FrameTypeError = "error"
)

// ChatPayload is the client->server chat send. Any identity fields a client
// smuggles into the payload are simply not decoded.
type ChatPayload struct {
	Room    string `json:"room" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Inbound is the tagged union of frames a client can send. Exactly one of
// the concrete variants below implements it.
type Inbound interface {
	inbound()
}

// ChatFrame is a recognized chat send.
type ChatFrame struct {
	Payload ChatPayload
}

// UnknownFrame is a well-formed frame of a type this server does not know.
// Unknown types are ignored for forward compatibility.
type UnknownFrame struct {
	Type string
}

func (ChatFrame) inbound()    {}
func (UnknownFrame) inbound() {}

// rawFrame is the wire envelope shared by every frame.
type rawFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseInbound decodes one wire frame into its variant. A frame that cannot
// be decoded at all, or a chat frame whose payload is not an object, yields
// an error wrapping domain.ErrValidation.
func ParseInbound(data []byte) (Inbound, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", domain.ErrValidation)
	}

	switch raw.Type {
	case FrameTypeChat:
		var payload ChatPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return nil, fmt.Errorf("malformed chat payload: %w", domain.ErrValidation)
		}
		return ChatFrame{Payload: payload}, nil
	default:
		return UnknownFrame{Type: raw.Type}, nil
	}
}

// errorFrame builds the server->sender error frame.
func errorFrame(message string) []byte {
	payload, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Payload struct {
			Message string `json:"message"`
		} `json:"payload"`
	}{
		Type: FrameTypeError,
		Payload: struct {
			Message string `json:"message"`
		}{Message: message},
	})
	return payload
}
