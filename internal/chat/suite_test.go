package chat_test

import (
	"testing"

	"linkup/backend/internal/cache"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/memstore"
	"linkup/backend/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConnections is an in-memory accepted-connection directory.
type fakeConnections struct {
	nextID uint
	conns  []*models.Connection
}

func (f *fakeConnections) accept(a, b string) {
	f.nextID++
	f.conns = append(f.conns, &models.Connection{
		ID:          f.nextID,
		RequesterID: a,
		AddresseeID: b,
		Status:      models.ConnectionAccepted,
	})
}

func (f *fakeConnections) AcceptedBetween(userA, userB string) (*models.Connection, error) {
	for _, c := range f.conns {
		if c.Status != models.ConnectionAccepted {
			continue
		}
		if (c.RequesterID == userA && c.AddresseeID == userB) ||
			(c.RequesterID == userB && c.AddresseeID == userA) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

// fakeProfiles derives a display name from the user id.
type fakeProfiles struct{}

func (fakeProfiles) Summary(userID string) (models.ProfileSummary, error) {
	return models.ProfileSummary{UserID: userID, DisplayName: "User " + userID}, nil
}

func (fakeProfiles) Summaries(userIDs []string) (map[string]models.ProfileSummary, error) {
	out := make(map[string]models.ProfileSummary, len(userIDs))
	for _, id := range userIDs {
		out[id] = models.ProfileSummary{UserID: id, DisplayName: "User " + id}
	}
	return out, nil
}

type fixture struct {
	store    *memstore.MemStore
	caches   *cache.ChatCaches
	conns    *fakeConnections
	reads    *chat.ReadTracker
	rooms    *chat.RoomService
	messages *chat.MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()

	f := &fixture{
		store:  memstore.New(),
		caches: cache.NewChatCaches(cache.DefaultTTL),
		conns:  &fakeConnections{},
	}
	f.reads = chat.NewReadTracker(f.store, f.caches, log)
	f.rooms = chat.NewRoomService(f.store, f.caches, f.conns, fakeProfiles{}, f.reads, log)
	f.messages = chat.NewMessageService(f.store, f.caches, f.rooms, log)
	return f
}

// connectedRoom accepts a connection between the two users and opens their
// room.
func (f *fixture) connectedRoom(t *testing.T, userA, userB string) *models.ChatRoom {
	t.Helper()
	f.conns.accept(userA, userB)
	room, err := f.rooms.CreateOrGetRoom(userA, userB)
	require.NoError(t, err)
	return room
}

func (f *fixture) sendText(t *testing.T, roomID, sender, text string) *models.Message {
	t.Helper()
	msg, err := f.messages.Send(roomID, sender, models.MessageInput{
		Type: models.MessageText,
		Text: &text,
	})
	require.NoError(t, err)
	return msg
}

func str(s string) *string { return &s }

func i64(n int64) *int64 { return &n }
