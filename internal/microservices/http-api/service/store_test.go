package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database, close enough to the
// SQL semantics (keyset filtering, pointer update in the same step, unique
// room names) to exercise the services end to end. The repository interfaces
// are projected through thin view types because their method sets overlap.
type memStore struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	members  map[string][]string // roomID -> participantIDs
	messages []models.Message
	profiles map[string]*models.UserProfile // userID -> profile
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    make(map[string]*models.Room),
		members:  make(map[string][]string),
		profiles: make(map[string]*models.UserProfile),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) messageRepo() repository.MessageRepository { return memMessageRepo{s} }
func (s *memStore) roomRepo() repository.RoomRepository       { return memRoomRepo{s} }
func (s *memStore) profileRepo() repository.ProfileRepository { return memProfileRepo{s} }

// tick hands out strictly increasing timestamps so created_at ordering is
// deterministic. Callers hold s.mu.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// addRoom seeds a room with members, bypassing the service layer.
func (s *memStore) addRoom(name string, memberIDs ...string) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := &models.Room{ID: uuid.New().String(), Name: name}
	s.rooms[room.ID] = room
	s.members[room.ID] = append([]string(nil), memberIDs...)
	return room
}

// addProfile seeds an existing user profile.
func (s *memStore) addProfile(userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = &models.UserProfile{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   displayName,
		Role:   models.RoleClient,
	}
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type memMessageRepo struct{ s *memStore }

func (r memMessageRepo) CreateWithRoomPointer(ctx context.Context, message *models.Message) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[message.RoomID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = s.tick()
	s.messages = append(s.messages, *message)
	id := message.ID
	room.LastMessageID = &id
	return nil
}

func (r memMessageRepo) GetPageByRoom(ctx context.Context, roomID string, before *repository.PageBoundary, limit int) ([]models.Message, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var matching []models.Message
	for _, m := range s.messages {
		if m.RoomID != roomID {
			continue
		}
		if before != nil {
			older := m.CreatedAt.Before(before.CreatedAt) ||
				(m.CreatedAt.Equal(before.CreatedAt) && m.ID < before.ID)
			if !older {
				continue
			}
		}
		matching = append(matching, m)
	}

	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.After(matching[j].CreatedAt)
		}
		return matching[i].ID > matching[j].ID
	})

	if len(matching) > limit {
		matching = matching[:limit]
	}
	return matching, nil
}

func (r memMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			found := m
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memMessageRepo) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.messages {
		if m.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

type memRoomRepo struct{ s *memStore }

func (r memRoomRepo) CreateWithMembers(ctx context.Context, room *models.Room, participantIDs []string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			*room = *existing
			return false, nil
		}
	}
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	stored := *room
	s.rooms[room.ID] = &stored
	s.members[room.ID] = append([]string(nil), participantIDs...)
	return true, nil
}

func (r memRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *room
	return &found, nil
}

func (r memRoomRepo) FindByName(ctx context.Context, name string) (*models.Room, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.Name == name {
			found := *room
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memRoomRepo) UpdateFields(ctx context.Context, roomID string, updates map[string]interface{}) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		room.Name = name
	}
	if color, ok := updates["color"].(string); ok {
		room.Color = color
	}
	return nil
}

func (r memRoomRepo) AddMembers(ctx context.Context, roomID string, participantIDs []string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]bool)
	for _, id := range s.members[roomID] {
		existing[id] = true
	}
	for _, id := range participantIDs {
		if !existing[id] {
			s.members[roomID] = append(s.members[roomID], id)
		}
	}
	return nil
}

func (r memRoomRepo) FindRoomIDsByParticipant(ctx context.Context, participantID string) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var roomIDs []string
	for roomID, members := range s.members {
		for _, id := range members {
			if id == participantID {
				roomIDs = append(roomIDs, roomID)
			}
		}
	}
	sort.Strings(roomIDs)
	return roomIDs, nil
}

func (r memRoomRepo) FindMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.members[roomID]...), nil
}

type memProfileRepo struct{ s *memStore }

func (r memProfileRepo) Create(ctx context.Context, profile *models.UserProfile) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.UserID]; exists {
		return false, nil
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	stored := *profile
	s.profiles[profile.UserID] = &stored
	return true, nil
}

func (r memProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *profile
	return &found, nil
}

func (r memProfileRepo) FindByUserIDs(ctx context.Context, userIDs []string) ([]models.UserProfile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var profiles []models.UserProfile
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

// recordingBroadcaster captures broadcast calls for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	rooms  []string
	bodies []models.Message
}

func (b *recordingBroadcaster) BroadcastMessage(roomID string, message *models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
	b.bodies = append(b.bodies, *message)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms)
}
