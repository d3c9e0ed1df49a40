package repository

import (
	"context"

	"chatdesk/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for user profile data operations.
type ProfileRepository interface {
	// Create inserts the profile; a second insert for the same user_id hits
	// the unique index and reports created=false (the provisioning hook may
	// fire more than once on retries).
	Create(ctx context.Context, profile *models.UserProfile) (created bool, err error)
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	FindByUserIDs(ctx context.Context, userIDs []string) ([]models.UserProfile, error)
}

// profileRepository is the GORM implementation of ProfileRepository.
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new instance of ProfileRepository in a GORM implementation
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.UserProfile) (bool, error) {
	err := r.db.WithContext(ctx).Create(profile).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}
