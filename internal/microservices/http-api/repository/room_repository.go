package repository

import (
	"context"
	"errors"

	"chatdesk/internal/microservices/http-api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postgres unique_violation
const pgUniqueViolation = "23505"

// RoomRepository defines the interface for room and membership data operations.
type RoomRepository interface {
	// CreateWithMembers inserts the room and its membership rows in one
	// transaction. Replaying the same room name returns the already existing
	// room with created=false instead of failing.
	CreateWithMembers(ctx context.Context, room *models.Room, participantIDs []string) (created bool, err error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByName(ctx context.Context, name string) (*models.Room, error)
	UpdateFields(ctx context.Context, roomID string, updates map[string]interface{}) error
	AddMembers(ctx context.Context, roomID string, participantIDs []string) error
	FindRoomIDsByParticipant(ctx context.Context, participantID string) ([]string, error)
	FindMemberIDs(ctx context.Context, roomID string) ([]string, error)
}

// roomRepository is the GORM implementation of RoomRepository.
type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new instance of RoomRepository in a GORM implementation
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) CreateWithMembers(ctx context.Context, room *models.Room, participantIDs []string) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return addMemberships(tx, room.ID, participantIDs)
	})
	if err == nil {
		return true, nil
	}

	// a replayed create hits the unique index on name; hand back the
	// existing room so the operation stays idempotent
	if isUniqueViolation(err) {
		existing, findErr := r.FindByName(ctx, room.Name)
		if findErr != nil {
			return false, findErr
		}
		*room = *existing
		return false, nil
	}
	return false, err
}

func (r *roomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByName(ctx context.Context, name string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) UpdateFields(ctx context.Context, roomID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *roomRepository) AddMembers(ctx context.Context, roomID string, participantIDs []string) error {
	return addMemberships(r.db.WithContext(ctx), roomID, participantIDs)
}

// addMemberships inserts join rows with conflict-ignore so re-adding a
// participant converges instead of erroring.
func addMemberships(tx *gorm.DB, roomID string, participantIDs []string) error {
	if len(participantIDs) == 0 {
		return nil
	}
	memberships := make([]models.RoomMembership, 0, len(participantIDs))
	for _, pid := range participantIDs {
		memberships = append(memberships, models.RoomMembership{
			RoomID:        roomID,
			ParticipantID: pid,
		})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberships).Error
}

func (r *roomRepository) FindRoomIDsByParticipant(ctx context.Context, participantID string) ([]string, error) {
	var roomIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("participant_id = ?", participantID).
		Pluck("room_id", &roomIDs).Error
	return roomIDs, err
}

func (r *roomRepository) FindMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	var memberIDs []string
	err := r.db.WithContext(ctx).
		Model(&models.RoomMembership{}).
		Where("room_id = ?", roomID).
		Pluck("participant_id", &memberIDs).Error
	return memberIDs, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
