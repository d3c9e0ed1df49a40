package models

// RoomMembership is the join row between a participant and a room.
// Queried by participant to build a user's room list; unique per pair so
// re-adding someone to a room is a no-op.
type RoomMembership struct {
	RoomID        string `gorm:"type:uuid;not null;uniqueIndex:idx_room_participant,priority:1" json:"room_id"`
	ParticipantID string `gorm:"type:uuid;not null;uniqueIndex:idx_room_participant,priority:2;index" json:"participant_id"`

	// Associations
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

func (RoomMembership) TableName() string {
	return "room_memberships"
}
