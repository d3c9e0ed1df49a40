package service

import (
	"errors"

	"chatdesk/internal/microservices/http-api/models"
)

var (
	ErrUnauthorized    = errors.New("no resolvable caller identity")
	ErrProfileNotFound = errors.New("no profile provisioned for identity")
	ErrRoomNotFound    = errors.New("room not found")
	ErrEmptyContent    = errors.New("message content must not be empty")
	ErrEmptyRoomName   = errors.New("room name must not be empty")
	ErrNoParticipants  = errors.New("room needs at least one participant")
)

// Caller is the identity resolved from the request's validated token.
// The zero value means "no identity" and fails every gated operation.
type Caller struct {
	UserID      string
	DisplayName string
	Email       string
}

// Resolved reports whether the caller carries a usable identity. A display
// name is required because messages denormalize the sender name at insert.
func (c Caller) Resolved() bool {
	return c.UserID != "" && c.DisplayName != ""
}

// MessagePage is one reverse-chronological page of a room's log. NextCursor
// is empty once the oldest message has been reached (terminal cursor).
type MessagePage struct {
	Messages   []models.Message `json:"messages"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// RoomWithLastMessage is a room enriched with the message its
// last_message_id points to, for sidebar previews.
type RoomWithLastMessage struct {
	Room        models.Room     `json:"room"`
	LastMessage *models.Message `json:"last_message,omitempty"`
}
