package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeEvent   = "EVENT"
	TypeError   = "ERROR"
)

// Event names carried by TypeEvent messages.
const (
	EventItemCreated = "ITEM_CREATED"
	EventItemUpdated = "ITEM_UPDATED"
	EventItemDeleted = "ITEM_DELETED"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
