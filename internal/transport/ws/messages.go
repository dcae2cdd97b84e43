package ws

import "encoding/json"

// Inbound event types.
const (
	TypeJoinPad        = "join_pad"
	TypePadStateUpdate = "pad_state_update"
	TypeUserRename     = "user_rename"
)

// Message is the inbound envelope; Payload is decoded per Type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinPayload struct {
	PadID    string `json:"padId"`
	UserName string `json:"userName"`
	Key      string `json:"key"`
}

type RenamePayload struct {
	PadID   string `json:"padId"`
	NewName string `json:"newName"`
}
