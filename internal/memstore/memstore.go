// Package memstore provides an in-memory storage.Storage implementation with
// the same query semantics as the PostgreSQL service. It backs the service and
// gateway tests; nothing in the server binary uses it.
package memstore

import (
	"sort"
	"sync"
	"time"

	"linkup/backend/internal/models"
	"linkup/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MemStore implements storage.Storage on process memory.
type MemStore struct {
	mu sync.Mutex

	rooms        map[string]*models.ChatRoom
	participants []*models.ChatParticipant
	messages     []*models.Message

	nextParticipantID uint
	nextMessageID     uint
	clock             time.Time

	// Published records every broadcast envelope in publish order.
	Published []models.RoomBroadcast
}

func New() *MemStore {
	return &MemStore{
		rooms: make(map[string]*models.ChatRoom),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering comparisons behave
// like a real database with distinct creation times.
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *MemStore) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		copied := *room
		return &copied, nil
	}
	return nil, nil
}

func (m *MemStore) GetRoomByConnectionID(connectionID uint) (*models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if room.ConnectionID != nil && *room.ConnectionID == connectionID {
			copied := *room
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CreateRoomWithParticipants(room *models.ChatRoom, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.Status == "" {
		room.Status = models.RoomActive
	}
	room.CreatedAt = m.tick()
	stored := *room
	m.rooms[room.ID] = &stored

	now := m.tick()
	for _, uid := range userIDs {
		m.nextParticipantID++
		m.participants = append(m.participants, &models.ChatParticipant{
			ID:       m.nextParticipantID,
			RoomID:   room.ID,
			UserID:   uid,
			JoinedAt: now,
			Visible:  true,
		})
	}
	return nil
}

func (m *MemStore) RoomsForUser(userID string) ([]models.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []models.ChatRoom
	for _, p := range m.participants {
		if p.UserID != userID || !p.Active() {
			continue
		}
		if room, ok := m.rooms[p.RoomID]; ok && room.IsActive() {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

func (m *MemStore) ActiveRoomIDsForUser(userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, p := range m.participants {
		if p.UserID == userID && p.Active() {
			ids = append(ids, p.RoomID)
		}
	}
	return ids, nil
}

func (m *MemStore) ActiveParticipants(roomID string) ([]models.ChatParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatParticipant
	for _, p := range m.participants {
		if p.RoomID == roomID && p.Active() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MemStore) GetActiveParticipant(roomID, userID string) (*models.ChatParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.RoomID == roomID && p.UserID == userID && p.Active() {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) LeaveRoom(roomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *models.ChatParticipant
	for _, p := range m.participants {
		if p.RoomID == roomID && p.UserID == userID && p.Active() {
			target = p
			break
		}
	}
	if target == nil {
		return false, storage.ErrNoActiveParticipant
	}

	now := m.tick()
	target.LeftAt = &now
	target.Visible = false

	remaining := 0
	for _, p := range m.participants {
		if p.RoomID == roomID && p.Active() {
			remaining++
		}
	}
	if remaining == 0 {
		if room, ok := m.rooms[roomID]; ok {
			room.Status = models.RoomArchived
		}
		return true, nil
	}
	return false, nil
}

func (m *MemStore) ArchiveEmptyRooms() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var archived int64
	for id, room := range m.rooms {
		if !room.IsActive() {
			continue
		}
		active := 0
		for _, p := range m.participants {
			if p.RoomID == id && p.Active() {
				active++
			}
		}
		if active == 0 {
			room.Status = models.RoomArchived
			archived++
		}
	}
	return archived, nil
}

func (m *MemStore) CreateMessage(msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMessageID++
	msg.ID = m.nextMessageID
	msg.CreatedAt = m.tick()
	msg.UpdatedAt = msg.CreatedAt
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

func (m *MemStore) SaveMessage(msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.messages {
		if existing.ID == msg.ID {
			msg.UpdatedAt = m.tick()
			stored := *msg
			m.messages[i] = &stored
			return nil
		}
	}
	return nil
}

func (m *MemStore) GetMessageByID(id uint) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) PageMessagesBefore(roomID string, cursor uint, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		msg := m.messages[i]
		if msg.RoomID != roomID {
			continue
		}
		if cursor > 0 && msg.ID >= cursor {
			continue
		}
		out = append(out, *msg)
	}
	return out, nil
}

func (m *MemStore) PageMessagesAfter(roomID string, cursor uint, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.RoomID != roomID || msg.ID <= cursor {
			continue
		}
		out = append(out, *msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemStore) LastMessage(roomID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.RoomID == roomID && !msg.Deleted {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) unreadMatches(msg *models.Message, roomID, excludeSender string, after *time.Time) bool {
	if msg.RoomID != roomID || msg.SenderID == excludeSender || msg.Deleted {
		return false
	}
	if after != nil && !msg.CreatedAt.After(*after) {
		return false
	}
	return true
}

func (m *MemStore) CountMessagesAfter(roomID, excludeSender string, after *time.Time, upTo uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, msg := range m.messages {
		if upTo > 0 && msg.ID > upTo {
			continue
		}
		if m.unreadMatches(msg, roomID, excludeSender, after) {
			count++
		}
	}
	return count, nil
}

func (m *MemStore) NewestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.unreadMatches(m.messages[i], roomID, excludeSender, after) {
			copied := *m.messages[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) OldestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if m.unreadMatches(msg, roomID, excludeSender, after) {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemStore) SetReadPointer(participantID, messageID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.ID == participantID {
			id := messageID
			p.LastReadMessageID = &id
			return nil
		}
	}
	return nil
}

func (m *MemStore) PublishRoomEvent(b models.RoomBroadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, b)
	return nil
}

// SubscribeRoomEvents returns nil; tests feed broadcasts into the hub
// directly.
func (m *MemStore) SubscribeRoomEvents() *redis.PubSub { return nil }

// PublishedEvents returns a snapshot of everything published so far.
func (m *MemStore) PublishedEvents() []models.RoomBroadcast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RoomBroadcast, len(m.Published))
	copy(out, m.Published)
	return out
}
