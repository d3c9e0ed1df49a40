package dto

// Data Transfer Objects for the chat API

// SendMessageRequest: payload for posting a message into a room
type SendMessageRequest struct {
	Content string  `json:"content" binding:"required"`
	FileRef *string `json:"file_ref,omitempty"`
}

// CreateRoomRequest: payload for creating (or idempotently replaying) a room
type CreateRoomRequest struct {
	Name         string   `json:"name" binding:"required"`
	Participants []string `json:"participants"`
	Color        string   `json:"color"`
}

// UpdateRoomRequest: partial room patch; omitted fields stay unchanged
type UpdateRoomRequest struct {
	Name            *string  `json:"name,omitempty"`
	Color           *string  `json:"color,omitempty"`
	AddParticipants []string `json:"add_participants,omitempty"`
}

// RoomResponse: room creation/update result
type RoomResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Created bool   `json:"created"` // false when the create was a replay
}
