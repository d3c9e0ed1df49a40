package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/repository"

	"gorm.io/gorm"
)

// MessageBroadcaster delivers a freshly stored message to the room's live
// subscribers. Implemented by the websocket hub.
type MessageBroadcaster interface {
	BroadcastMessage(roomID string, message *models.Message)
}

// RoomUpdate carries the patchable room fields. Nil means "leave unchanged".
type RoomUpdate struct {
	Name            *string
	Color           *string
	AddParticipants []string
}

// ChatMutationService validates and persists chat writes.
type ChatMutationService interface {
	SendMessage(ctx context.Context, caller Caller, roomID, content string, fileRef *string) (*models.Message, error)
	CreateRoom(ctx context.Context, caller Caller, name string, participants []string, color string) (*models.Room, bool, error)
	UpdateRoom(ctx context.Context, caller Caller, roomID string, update RoomUpdate) (*models.Room, error)
}

type chatMutationService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	roomLists   RoomListCache      // optional
	broadcaster MessageBroadcaster // optional
}

func NewChatMutationService(
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	roomLists RoomListCache,
	broadcaster MessageBroadcaster,
) ChatMutationService {
	return &chatMutationService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		roomLists:   roomLists,
		broadcaster: broadcaster,
	}
}

// SendMessage inserts a message with the caller's display name and a
// server-assigned timestamp, and moves the room's last-message pointer in the
// same transaction. After commit the message is pushed to live subscribers
// and the members' cached room lists are invalidated.
func (s *chatMutationService) SendMessage(ctx context.Context, caller Caller, roomID, content string, fileRef *string) (*models.Message, error) {
	if !caller.Resolved() {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	message := &models.Message{
		RoomID:     roomID,
		SenderName: caller.DisplayName,
		Content:    content,
		FileRef:    fileRef,
	}
	if err := s.messageRepo.CreateWithRoomPointer(ctx, message); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	s.invalidateRoomLists(ctx, roomID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(roomID, message)
	}
	return message, nil
}

// CreateRoom validates and upserts a room. Replaying the same name returns
// the existing room (created=false) so the operation is idempotent. The
// caller is always included in the participant set.
func (s *chatMutationService) CreateRoom(ctx context.Context, caller Caller, name string, participants []string, color string) (*models.Room, bool, error) {
	if caller.UserID == "" {
		return nil, false, ErrUnauthorized
	}
	if strings.TrimSpace(name) == "" {
		return nil, false, ErrEmptyRoomName
	}

	members := dedupe(append(participants, caller.UserID))
	if len(members) == 0 {
		return nil, false, ErrNoParticipants
	}

	room := &models.Room{Name: strings.TrimSpace(name), Color: color}
	created, err := s.roomRepo.CreateWithMembers(ctx, room, members)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create room: %w", err)
	}

	if s.roomLists != nil {
		s.roomLists.Invalidate(ctx, members...)
	}
	return room, created, nil
}

// UpdateRoom patches name/color and adds participants. Repeating the same
// call converges on the same state.
func (s *chatMutationService) UpdateRoom(ctx context.Context, caller Caller, roomID string, update RoomUpdate) (*models.Room, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, ErrEmptyRoomName
		}
		updates["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}

	if len(updates) > 0 {
		if err := s.roomRepo.UpdateFields(ctx, roomID, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRoomNotFound
			}
			return nil, fmt.Errorf("failed to update room: %w", err)
		}
	}

	if added := dedupe(update.AddParticipants); len(added) > 0 {
		if err := s.roomRepo.AddMembers(ctx, roomID, added); err != nil {
			return nil, fmt.Errorf("failed to add members: %w", err)
		}
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	s.invalidateRoomLists(ctx, roomID)
	return room, nil
}

// invalidateRoomLists drops the cached room list of every member of the room.
// Best effort: a stale sidebar preview is acceptable, a failed send is not.
func (s *chatMutationService) invalidateRoomLists(ctx context.Context, roomID string) {
	if s.roomLists == nil {
		return
	}
	memberIDs, err := s.roomRepo.FindMemberIDs(ctx, roomID)
	if err != nil {
		slog.Warn("failed to resolve members for cache invalidation", "room_id", roomID, "error", err)
		return
	}
	s.roomLists.Invalidate(ctx, memberIDs...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
