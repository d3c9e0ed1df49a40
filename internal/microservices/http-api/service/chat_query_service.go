package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageCache caches immutable (cursor-anchored) message pages. A miss is
// reported as ok=false; cache failures must degrade to a miss, never an error.
type PageCache interface {
	Get(ctx context.Context, key string) (*MessagePage, bool)
	Set(ctx context.Context, key string, page *MessagePage)
}

// RoomListCache caches the enriched room list per participant, invalidated
// whenever one of their rooms changes.
type RoomListCache interface {
	Get(ctx context.Context, participantID string) ([]RoomWithLastMessage, bool)
	Set(ctx context.Context, participantID string, rooms []RoomWithLastMessage)
	Invalidate(ctx context.Context, participantIDs ...string)
}

// ChatQueryService exposes paginated room-scoped message retrieval and
// room listing with last-message enrichment.
type ChatQueryService interface {
	GetRoomMessages(ctx context.Context, roomID, cursor string, pageSize int) (*MessagePage, error)
	GetRooms(ctx context.Context, caller Caller) ([]RoomWithLastMessage, error)
}

type chatQueryService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	profileRepo repository.ProfileRepository
	pages       PageCache     // optional
	roomLists   RoomListCache // optional
	sf          singleflight.Group
}

func NewChatQueryService(
	messageRepo repository.MessageRepository,
	roomRepo repository.RoomRepository,
	profileRepo repository.ProfileRepository,
	pages PageCache,
	roomLists RoomListCache,
) ChatQueryService {
	return &chatQueryService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		profileRepo: profileRepo,
		pages:       pages,
		roomLists:   roomLists,
	}
}

// GetRoomMessages returns one page of the room's log, newest first, plus the
// opaque continuation cursor. Pages are anchored strictly below the cursor
// boundary, so a page already issued never changes when new messages arrive.
// An empty or unknown room yields an empty page and a terminal cursor.
func (s *chatQueryService) GetRoomMessages(ctx context.Context, roomID, cursor string, pageSize int) (*MessagePage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	boundary, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	// the newest page moves with every send, fetch it directly; only
	// cursor-anchored pages are immutable and worth caching
	if boundary == nil {
		return s.fetchPage(ctx, roomID, nil, pageSize)
	}

	key := fmt.Sprintf("%s:%s:%d", roomID, cursor, pageSize)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if s.pages != nil {
			if page, ok := s.pages.Get(ctx, key); ok {
				return page, nil
			}
		}
		page, err := s.fetchPage(ctx, roomID, boundary, pageSize)
		if err != nil {
			return nil, err
		}
		if s.pages != nil {
			s.pages.Set(ctx, key, page)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*MessagePage), nil
}

func (s *chatQueryService) fetchPage(ctx context.Context, roomID string, boundary *repository.PageBoundary, pageSize int) (*MessagePage, error) {
	// fetch one extra row to learn whether older history remains
	messages, err := s.messageRepo.GetPageByRoom(ctx, roomID, boundary, pageSize+1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message page: %w", err)
	}

	page := &MessagePage{Messages: messages}
	if len(messages) > pageSize {
		page.Messages = messages[:pageSize]
		page.HasMore = true
		last := page.Messages[pageSize-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	if page.Messages == nil {
		page.Messages = []models.Message{}
	}
	return page, nil
}

// GetRooms lists the caller's rooms, each enriched with the message its
// last-message pointer references. Room and last-message lookups fan out
// concurrently so latency is bounded by the slowest single fetch.
func (s *chatQueryService) GetRooms(ctx context.Context, caller Caller) ([]RoomWithLastMessage, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := s.profileRepo.FindByUserID(ctx, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	if s.roomLists != nil {
		if rooms, ok := s.roomLists.Get(ctx, caller.UserID); ok {
			return rooms, nil
		}
	}

	roomIDs, err := s.roomRepo.FindRoomIDsByParticipant(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up memberships: %w", err)
	}

	results := make([]*RoomWithLastMessage, len(roomIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, roomID := range roomIDs {
		i, roomID := i, roomID
		g.Go(func() error {
			room, err := s.roomRepo.FindByID(gctx, roomID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// membership outlived the room, skip it
					slog.Warn("membership references missing room", "room_id", roomID)
					return nil
				}
				return err
			}

			enriched := &RoomWithLastMessage{Room: *room}
			if room.LastMessageID != nil {
				last, err := s.messageRepo.FindByID(gctx, *room.LastMessageID)
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				enriched.LastMessage = last
			}
			results[i] = enriched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to enrich rooms: %w", err)
	}

	rooms := make([]RoomWithLastMessage, 0, len(results))
	for _, r := range results {
		if r != nil {
			rooms = append(rooms, *r)
		}
	}

	if s.roomLists != nil {
		s.roomLists.Set(ctx, caller.UserID, rooms)
	}
	return rooms, nil
}
