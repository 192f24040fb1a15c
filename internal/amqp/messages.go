package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"pfm/internal/core"
)

// MessageVersion is bumped when the payload layout changes incompatibly.
const MessageVersion = 1

// MutationMessage is the broker envelope of a core.MutationEvent.
type MutationMessage struct {
	Version int                `json:"version"`
	Event   core.MutationEvent `json:"event"`
}

// NewMutationMessage wraps ev, stamping it now when it has no timestamp.
func NewMutationMessage(ev core.MutationEvent) *MutationMessage {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return &MutationMessage{Version: MessageVersion, Event: ev}
}

// ToJSON converts the message to JSON bytes
func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationMessageFromJSON decodes and checks a message body.
func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var msg MutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != MessageVersion {
		return nil, errors.New("unsupported message version")
	}
	switch msg.Event.Action {
	case core.MutationCreated, core.MutationDeleted:
	default:
		return nil, errors.New("unknown mutation action")
	}
	return &msg, nil
}
