package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room = one named conversation shared by its participants.
// LastMessageID is a denormalized pointer to the newest message of the room
// so the sidebar can show a preview without scanning the messages table.
// It is only ever written inside the same transaction that inserts the message.
type Room struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name          string  `gorm:"uniqueIndex;not null" json:"name"`
	Color         string  `gorm:"not null" json:"color"`
	LastMessageID *string `gorm:"type:uuid" json:"last_message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	LastMessage *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
}

// BeforeCreate hook to set UUID before creating a Room
func (room *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	return
}

func (Room) TableName() string {
	return "rooms"
}
