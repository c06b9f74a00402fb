package chathub_test

import (
	"sync"
	"testing"
	"time"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/chathub"
	"linkup/backend/internal/memstore"
	"linkup/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockClient is an in-process Client with a buffered outbound channel the test
// reads directly.
type mockClient struct {
	userID string
	send   chan models.ServerEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string) *mockClient {
	return &mockClient{userID: userID, send: make(chan models.ServerEvent, 16)}
}

func (c *mockClient) GetUserID() string { return c.userID }

func (c *mockClient) GetSendChannel() chan<- models.ServerEvent { return c.send }

func (c *mockClient) Run() {}

func (c *mockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *mockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func nextEvent(t *testing.T, c *mockClient) models.ServerEvent {
	t.Helper()
	select {
	case ev, ok := <-c.send:
		require.True(t, ok, "client channel closed while waiting for an event")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a server event")
		return models.ServerEvent{}
	}
}

func assertNoEvent(t *testing.T, c *mockClient) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("unexpected event %q delivered to %s", ev.Event, c.userID)
	case <-time.After(150 * time.Millisecond):
	}
}

type fakeConnections struct{ conns []*models.Connection }

func (f *fakeConnections) AcceptedBetween(a, b string) (*models.Connection, error) {
	for _, c := range f.conns {
		if (c.RequesterID == a && c.AddresseeID == b) || (c.RequesterID == b && c.AddresseeID == a) {
			return c, nil
		}
	}
	return nil, nil
}

type fakeProfiles struct{}

func (fakeProfiles) Summary(id string) (models.ProfileSummary, error) {
	return models.ProfileSummary{UserID: id, DisplayName: id}, nil
}

func (fakeProfiles) Summaries(ids []string) (map[string]models.ProfileSummary, error) {
	out := make(map[string]models.ProfileSummary, len(ids))
	for _, id := range ids {
		out[id] = models.ProfileSummary{UserID: id, DisplayName: id}
	}
	return out, nil
}

type hubFixture struct {
	store    *memstore.MemStore
	rooms    *chat.RoomService
	messages *chat.MessageService
	hub      *chathub.Manager
	roomID   string
}

// newHubFixture wires a hub over in-memory storage with alice and bob already
// sharing a room, and starts the run loop.
func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	log := zap.NewNop().Sugar()

	store := memstore.New()
	caches := cache.NewChatCaches(cache.DefaultTTL)
	conns := &fakeConnections{conns: []*models.Connection{
		{ID: 1, RequesterID: "alice", AddresseeID: "bob", Status: models.ConnectionAccepted},
	}}

	reads := chat.NewReadTracker(store, caches, log)
	rooms := chat.NewRoomService(store, caches, conns, fakeProfiles{}, reads, log)
	messages := chat.NewMessageService(store, caches, rooms, log)

	room, err := rooms.CreateOrGetRoom("alice", "bob")
	require.NoError(t, err)

	hub := chathub.NewManager(store, rooms, messages, reads, log)
	go hub.Run()

	return &hubFixture{store: store, rooms: rooms, messages: messages, hub: hub, roomID: room.ID}
}

// connect registers a client and consumes the connect handshake.
func (f *hubFixture) connect(t *testing.T, userID string) *mockClient {
	t.Helper()
	c := newMockClient(userID)
	f.hub.RegisterCh <- c
	ev := nextEvent(t, c)
	require.Equal(t, models.EventConnected, ev.Event)
	return c
}

// publishedWith filters the recorded broadcasts by payload event name.
func (f *hubFixture) publishedWith(event string) []models.RoomBroadcast {
	var out []models.RoomBroadcast
	for _, b := range f.store.PublishedEvents() {
		if b.Payload.Event == event {
			out = append(out, b)
		}
	}
	return out
}

func TestManager_RegisterRestoresRoomMembership(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	// A broadcast for the room reaches the fresh connection without an
	// explicit room:join.
	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:  f.roomID,
		Payload: models.ServerEvent{Event: models.EventNewMessage, RoomID: f.roomID},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventNewMessage, ev.Event)
	assert.Equal(t, f.roomID, ev.RoomID)
}

func TestManager_JoinAcksWithParticipants(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event:  models.ClientEvent{Event: models.EventRoomJoin, RoomID: f.roomID},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventRoomJoined, ev.Event)
	assert.Equal(t, f.roomID, ev.RoomID)

	time.Sleep(50 * time.Millisecond)
	joined := f.publishedWith(models.EventUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "alice", joined[0].ExcludeUserID)
}

func TestManager_JoinMarksBacklogRead(t *testing.T) {
	f := newHubFixture(t)

	_, err := f.messages.Send(f.roomID, "bob", models.MessageInput{Type: models.MessageText, Text: strPtr("hi")})
	require.NoError(t, err)

	alice := f.connect(t, "alice")
	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event:  models.ClientEvent{Event: models.EventRoomJoin, RoomID: f.roomID},
	}
	ev := nextEvent(t, alice)
	require.Equal(t, models.EventRoomJoined, ev.Event)

	time.Sleep(50 * time.Millisecond)
	receipts := f.publishedWith(models.EventMessageRead)
	require.Len(t, receipts, 1, "the counterpart gets a read receipt for the caught-up backlog")
	assert.Equal(t, "alice", receipts[0].ExcludeUserID)

	detail, err := f.rooms.GetRoomDetail(f.roomID, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 0, detail.UnreadCount)
}

func TestManager_JoinForbiddenForNonParticipant(t *testing.T) {
	f := newHubFixture(t)
	carol := f.connect(t, "carol")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: carol,
		Event:  models.ClientEvent{Event: models.EventRoomJoin, RoomID: f.roomID},
	}

	ev := nextEvent(t, carol)
	assert.Equal(t, models.EventError, ev.Event)
	assert.NotEmpty(t, ev.Error)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(apperr.Forbidden), data["status"])
}

func TestManager_SendAcksThenBroadcasts(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event: models.ClientEvent{
			Event:  models.EventMessageSend,
			RoomID: f.roomID,
			Type:   models.MessageText,
			Text:   strPtr("hello bob"),
		},
	}

	ack := nextEvent(t, alice)
	assert.Equal(t, models.EventMessageSaved, ack.Event)
	saved, ok := ack.Data.(*models.Message)
	require.True(t, ok)
	assert.Equal(t, "hello bob", *saved.Text)
	assert.NotZero(t, saved.ID)

	time.Sleep(50 * time.Millisecond)
	broadcasts := f.publishedWith(models.EventNewMessage)
	require.Len(t, broadcasts, 1, "broadcast is published only after the durable commit")
	assert.Equal(t, "alice", broadcasts[0].ExcludeUserID)

	// The relay hands the envelope back for local fan-out; the sender is
	// excluded, the counterpart gets it.
	f.hub.PubSubCh <- broadcasts[0]

	ev := nextEvent(t, bob)
	assert.Equal(t, models.EventNewMessage, ev.Event)
	assertNoEvent(t, alice)
}

func TestManager_SendFailureReachesSenderOnly(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	_, err := f.rooms.LeaveRoom(f.roomID, "bob")
	require.NoError(t, err)

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event: models.ClientEvent{
			Event:  models.EventMessageSend,
			RoomID: f.roomID,
			Type:   models.MessageText,
			Text:   strPtr("anyone?"),
		},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventMessageError, ev.Event)
	assert.Equal(t, "message undeliverable, recipient left", ev.Error)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(apperr.Conflict), data["status"])

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.publishedWith(models.EventNewMessage), "nothing is broadcast for a rejected send")
}

func TestManager_LeaveCommitsBeforeLocalState(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event:  models.ClientEvent{Event: models.EventRoomLeave, RoomID: f.roomID},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventRoomLeft, ev.Event)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["archived"])

	p, err := f.store.GetActiveParticipant(f.roomID, "alice")
	require.NoError(t, err)
	assert.Nil(t, p, "the durable row is gone, not just the in-memory index entry")

	time.Sleep(50 * time.Millisecond)
	left := f.publishedWith(models.EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "alice", left[0].ExcludeUserID)

	// A broadcast for the room no longer reaches the leaver.
	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:  f.roomID,
		Payload: models.ServerEvent{Event: models.EventNewMessage, RoomID: f.roomID},
	}
	assertNoEvent(t, alice)
}

func TestManager_LeaveFailureKeepsMembership(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event:  models.ClientEvent{Event: models.EventRoomLeave, RoomID: "no-such-room"},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventError, ev.Event)

	// Real-room broadcasts still arrive.
	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:  f.roomID,
		Payload: models.ServerEvent{Event: models.EventNewMessage, RoomID: f.roomID},
	}
	got := nextEvent(t, alice)
	assert.Equal(t, models.EventNewMessage, got.Event)
}

func TestManager_DisconnectThenReconnect(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	f.hub.UnregisterCh <- alice
	time.Sleep(50 * time.Millisecond)
	assert.True(t, alice.isClosed())

	// A reconnect silently rejoins without any room:join.
	again := f.connect(t, "alice")
	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:  f.roomID,
		Payload: models.ServerEvent{Event: models.EventNewMessage, RoomID: f.roomID},
	}
	ev := nextEvent(t, again)
	assert.Equal(t, models.EventNewMessage, ev.Event)
}

func TestManager_NewConnectionReplacesOld(t *testing.T) {
	f := newHubFixture(t)
	first := f.connect(t, "alice")
	second := f.connect(t, "alice")

	time.Sleep(50 * time.Millisecond)
	assert.True(t, first.isClosed(), "the superseded connection gets closed")
	assert.False(t, second.isClosed())
}

func TestManager_EventFromSupersededConnectionDropped(t *testing.T) {
	f := newHubFixture(t)
	first := f.connect(t, "alice")
	second := f.connect(t, "alice")

	time.Sleep(50 * time.Millisecond)
	require.True(t, first.isClosed())

	// A frame the old connection still had in flight when it was replaced
	// must be discarded, not answered on its closed channel.
	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: first,
		Event:  models.ClientEvent{Event: models.EventRoomJoin, RoomID: f.roomID},
	}
	assertNoEvent(t, second)

	// The run loop survived and still serves the current connection.
	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: second,
		Event:  models.ClientEvent{Event: models.EventRoomJoin, RoomID: f.roomID},
	}
	ev := nextEvent(t, second)
	assert.Equal(t, models.EventRoomJoined, ev.Event)
}

func TestManager_RelayedUserLeftPrunesIndex(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	// A leave performed over the REST surface arrives only as its broadcast
	// envelope; the hub must prune the leaver from the local index.
	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:        f.roomID,
		ExcludeUserID: "alice",
		Payload: models.ServerEvent{
			Event:  models.EventUserLeft,
			RoomID: f.roomID,
			Data:   map[string]any{"user_id": "alice"},
		},
	}

	ev := nextEvent(t, bob)
	assert.Equal(t, models.EventUserLeft, ev.Event)
	assertNoEvent(t, alice)

	f.hub.PubSubCh <- models.RoomBroadcast{
		RoomID:  f.roomID,
		Payload: models.ServerEvent{Event: models.EventNewMessage, RoomID: f.roomID},
	}
	ev = nextEvent(t, bob)
	assert.Equal(t, models.EventNewMessage, ev.Event)
	assertNoEvent(t, alice)
}

func TestManager_UnknownEventRejected(t *testing.T) {
	f := newHubFixture(t)
	alice := f.connect(t, "alice")

	f.hub.IncomingCh <- chathub.InboundEvent{
		Client: alice,
		Event:  models.ClientEvent{Event: "room:explode", RoomID: f.roomID},
	}

	ev := nextEvent(t, alice)
	assert.Equal(t, models.EventError, ev.Event)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(apperr.InvalidInput), data["status"])
}

func strPtr(s string) *string { return &s }
