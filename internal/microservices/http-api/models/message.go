package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an immutable chat entry scoped to one room.
// No edit/delete: rows are append-only, ordered by (created_at, id).
type Message struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID     string    `gorm:"type:uuid;not null;index:idx_messages_room_created,priority:1" json:"room_id"`
	SenderName string    `gorm:"not null" json:"sender_name"`
	Content    string    `gorm:"not null" json:"content"`
	FileRef    *string   `json:"file_ref,omitempty"` // opaque blob reference from the upload service
	CreatedAt  time.Time `gorm:"index:idx_messages_room_created,priority:2" json:"created_at"`

	// Associations
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// BeforeCreate hook to set UUID before creating a Message
func (message *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return
}

func (Message) TableName() string {
	return "messages"
}
