package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"chatdesk/internal/microservices/http-api/models"
)

// Wire protocol for the live-update socket. Clients only drive subscriptions
// (join/leave) and typing indicators; chat content itself always enters
// through the HTTP send endpoint and is pushed back out as a chat frame.

type MessageType string

const (
	TypeJoin   MessageType = "join"   // subscribe to a room's live updates
	TypeLeave  MessageType = "leave"  // unsubscribe from a room
	TypeChat   MessageType = "chat"   // server push: a stored message
	TypeSystem MessageType = "system" // server push: informational notice
	TypeTyping MessageType = "typing" // relayed typing indicator
)

// Frame is the envelope for everything crossing the socket.
type Frame struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	UserName  string          `json:"user_name,omitempty"`
	Message   *models.Message `json:"message,omitempty"` // set on chat frames
	Content   string          `json:"content,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChatFrame wraps a stored message for push delivery. The embedded message
// carries the server-assigned ID and timestamp, so subscribers can merge it
// into their view in created-at order.
func NewChatFrame(roomID string, message *models.Message) *Frame {
	return &Frame{
		Type:      TypeChat,
		RoomID:    roomID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func NewSystemFrame(roomID, content string) *Frame {
	return &Frame{
		Type:      TypeSystem,
		RoomID:    roomID,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON: marshal Frame struct to JSON
func (f *Frame) ToJSON() ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("Failed to marshal frame to JSON", "error", err)
		return nil, err
	}
	return data, nil
}

// FrameFromJSON: unmarshal JSON data to Frame struct
func FrameFromJSON(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Error("Failed to unmarshal frame from JSON", "error", err)
		return nil, err
	}
	return &frame, nil
}
