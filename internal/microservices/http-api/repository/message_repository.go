package repository

import (
	"context"
	"time"

	"chatdesk/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageBoundary is the keyset position a page continues from: strictly older
// than (CreatedAt, ID) of the last message on the previous page. Keyset rather
// than offset so a page already handed out never changes when new messages
// arrive at the head of the log.
type PageBoundary struct {
	CreatedAt time.Time
	ID        string
}

// MessageRepository defines the interface for message data operations.
type MessageRepository interface {
	// CreateWithRoomPointer inserts the message and moves the owning room's
	// last_message_id in one transaction. Readers never see one write
	// without the other.
	CreateWithRoomPointer(ctx context.Context, message *models.Message) error
	GetPageByRoom(ctx context.Context, roomID string, before *PageBoundary, limit int) ([]models.Message, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
}

// messageRepository is the GORM implementation of MessageRepository.
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of MessageRepository in a GORM implementation
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateWithRoomPointer(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// lock the room row before the insert, not after: concurrent
		// senders on the same room must serialize across timestamp
		// assignment AND the pointer update, or a sender that created its
		// message first but committed second would move the pointer back
		// to an older created_at
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", message.RoomID).Error; err != nil {
			return err
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		return tx.Model(&models.Room{}).
			Where("id = ?", message.RoomID).
			Update("last_message_id", message.ID).Error
	})
}

func (r *messageRepository) GetPageByRoom(ctx context.Context, roomID string, before *PageBoundary, limit int) ([]models.Message, error) {
	var messages []models.Message
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)

	if before != nil {
		// strictly below the boundary pair, ties broken by id
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			before.CreatedAt, before.CreatedAt, before.ID,
		)
	}

	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
