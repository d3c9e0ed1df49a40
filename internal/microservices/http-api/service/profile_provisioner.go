package service

import (
	"context"
	"log/slog"

	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/repository"
)

// NewProfileProvisioner returns the identity-created hook that creates the
// corresponding UserProfile with the default client role. The unique index on
// user_id makes a repeated fire a no-op, so the cross-system invariant holds:
// exactly one profile per identity.
func NewProfileProvisioner(profileRepo repository.ProfileRepository) IdentityCreatedHook {
	return func(ctx context.Context, userID, name, email string) {
		created, err := profileRepo.Create(ctx, &models.UserProfile{
			UserID: userID,
			Name:   name,
			Email:  email,
			Role:   models.RoleClient,
		})
		if err != nil {
			// surfaced in logs rather than failing registration; the profile
			// check in GetRooms reports ProfileNotFound until this is repaired
			slog.Error("failed to provision user profile", "user_id", userID, "error", err)
			return
		}
		if !created {
			slog.Warn("profile already provisioned for identity", "user_id", userID)
		}
	}
}
