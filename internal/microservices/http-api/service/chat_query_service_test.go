package service

import (
	"context"
	"testing"

	"chatdesk/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, store *memStore, roomID string, n int) []string {
	t.Helper()
	repo := store.messageRepo()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		msg := &models.Message{RoomID: roomID, SenderName: "seeder", Content: "hello"}
		require.NoError(t, repo.CreateWithRoomPointer(context.Background(), msg))
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestGetRoomMessages_EmptyRoom(t *testing.T) {
	store := newMemStore()
	room := store.addRoom("general")
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	page, err := svc.GetRoomMessages(context.Background(), room.ID, "", 20)

	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Empty(t, page.NextCursor)
	assert.False(t, page.HasMore)
}

func TestGetRoomMessages_InvalidCursor(t *testing.T) {
	store := newMemStore()
	room := store.addRoom("general")
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	_, err := svc.GetRoomMessages(context.Background(), room.ID, "not-a-cursor", 20)

	assert.ErrorIs(t, err, ErrInvalidCursor)
}

// Walking the cursor chain to the end must yield every stored message exactly
// once, newest first, even when the page size does not divide the total.
func TestGetRoomMessages_FullWalk(t *testing.T) {
	store := newMemStore()
	room := store.addRoom("general")
	seeded := seedMessages(t, store, room.ID, 53)
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	seen := make(map[string]int)
	cursor := ""
	pages := 0
	var previous *models.Message
	for {
		page, err := svc.GetRoomMessages(context.Background(), room.ID, cursor, 20)
		require.NoError(t, err)
		pages++
		require.LessOrEqual(t, pages, 10, "cursor walk did not terminate")

		for i := range page.Messages {
			m := &page.Messages[i]
			seen[m.ID]++
			if previous != nil {
				assert.False(t, m.CreatedAt.After(previous.CreatedAt),
					"messages must be in non-increasing created_at order across pages")
			}
			previous = m
		}

		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages) // 20 + 20 + 13
	assert.Len(t, seen, len(seeded))
	for _, id := range seeded {
		assert.Equal(t, 1, seen[id], "message %s must appear exactly once", id)
	}
}

// A cursor issued before new messages arrive still anchors strictly below its
// boundary, so the remainder of the walk is unaffected by concurrent sends.
func TestGetRoomMessages_CursorStableUnderInserts(t *testing.T) {
	store := newMemStore()
	room := store.addRoom("general")
	original := seedMessages(t, store, room.ID, 30)
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	first, err := svc.GetRoomMessages(context.Background(), room.ID, "", 10)
	require.NoError(t, err)
	require.True(t, first.HasMore)

	// newer messages arrive mid-walk
	seedMessages(t, store, room.ID, 5)

	collected := make(map[string]bool)
	for i := range first.Messages {
		collected[first.Messages[i].ID] = true
	}
	cursor := first.NextCursor
	for cursor != "" {
		page, err := svc.GetRoomMessages(context.Background(), room.ID, cursor, 10)
		require.NoError(t, err)
		for i := range page.Messages {
			assert.False(t, collected[page.Messages[i].ID], "no message may repeat")
			collected[page.Messages[i].ID] = true
		}
		cursor = page.NextCursor
	}

	// exactly the original set: the walk never jumps forward to new rows
	assert.Len(t, collected, len(original))
	for _, id := range original {
		assert.True(t, collected[id])
	}
}

func TestGetRoomMessages_PageSizeClamped(t *testing.T) {
	store := newMemStore()
	room := store.addRoom("general")
	seedMessages(t, store, room.ID, MaxPageSize+30)
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	page, err := svc.GetRoomMessages(context.Background(), room.ID, "", 10_000)
	require.NoError(t, err)
	assert.Len(t, page.Messages, MaxPageSize)

	page, err = svc.GetRoomMessages(context.Background(), room.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, DefaultPageSize)
}

func TestGetRooms_Unauthorized(t *testing.T) {
	store := newMemStore()
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	_, err := svc.GetRooms(context.Background(), Caller{})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetRooms_ProfileNotFound(t *testing.T) {
	store := newMemStore()
	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)

	_, err := svc.GetRooms(context.Background(), Caller{UserID: "no-such-user", DisplayName: "ghost"})

	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestGetRooms_EnrichesLastMessage(t *testing.T) {
	store := newMemStore()
	store.addProfile("alice-id", "alice")
	active := store.addRoom("active", "alice-id")
	store.addRoom("quiet", "alice-id")
	store.addRoom("other", "bob-id") // alice is not a member

	msg := &models.Message{RoomID: active.ID, SenderName: "alice", Content: "latest"}
	require.NoError(t, store.messageRepo().CreateWithRoomPointer(context.Background(), msg))

	svc := NewChatQueryService(store.messageRepo(), store.roomRepo(), store.profileRepo(), nil, nil)
	rooms, err := svc.GetRooms(context.Background(), Caller{UserID: "alice-id", DisplayName: "alice"})

	require.NoError(t, err)
	require.Len(t, rooms, 2)

	byName := make(map[string]RoomWithLastMessage)
	for _, r := range rooms {
		byName[r.Room.Name] = r
	}
	require.NotNil(t, byName["active"].LastMessage)
	assert.Equal(t, msg.ID, byName["active"].LastMessage.ID)
	assert.Equal(t, "latest", byName["active"].LastMessage.Content)
	assert.Nil(t, byName["quiet"].LastMessage)
	_, member := byName["other"]
	assert.False(t, member)
}
