package service

import "github.com/cwrk-planet/coderjam/internal/domain"

// Outbound event types.
const (
	EventPadStateUpdated = "pad_state_updated"
	EventUserRenamed     = "user_renamed"
	EventUserLeft        = "user_left"
	EventError           = "error"
)

// Event is one frame pushed to a connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type UserRenamed struct {
	PadID   string `json:"padId"`
	UserID  string `json:"userId"`
	NewName string `json:"newName"`
}

type UserLeft struct {
	PadID  string             `json:"padId"`
	UserID string             `json:"userId"`
	User   domain.Participant `json:"user"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Peer is the server side of one client connection. Send must not block:
// implementations queue the event or drop the connection.
type Peer interface {
	ID() string
	Send(ev Event) error
}
