package chat_test

import (
	"testing"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrGetRoom_IdempotentInBothOrders(t *testing.T) {
	f := newFixture(t)
	f.conns.accept("alice", "bob")

	first, err := f.rooms.CreateOrGetRoom("alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, models.RoomActive, first.Status)

	second, err := f.rooms.CreateOrGetRoom("alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Reversed argument order resolves to the same room.
	reversed, err := f.rooms.CreateOrGetRoom("bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)

	participants, err := f.store.ActiveParticipants(first.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestCreateOrGetRoom_SelfPairingRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.rooms.CreateOrGetRoom("alice", "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.StatusOf(err))
}

func TestCreateOrGetRoom_RequiresAcceptedConnection(t *testing.T) {
	f := newFixture(t)

	_, err := f.rooms.CreateOrGetRoom("alice", "stranger")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.StatusOf(err))
}

func TestLeaveRoom_ArchivesWhenLastParticipantLeaves(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	archived, err := f.rooms.LeaveRoom(room.ID, "alice")
	require.NoError(t, err)
	assert.False(t, archived, "room with a remaining participant must stay active")

	current, err := f.store.GetRoomByID(room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomActive, current.Status)

	archived, err = f.rooms.LeaveRoom(room.ID, "bob")
	require.NoError(t, err)
	assert.True(t, archived)

	current, err = f.store.GetRoomByID(room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomArchived, current.Status)
}

func TestLeaveRoom_SecondLeaveForbidden(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	_, err := f.rooms.LeaveRoom(room.ID, "alice")
	require.NoError(t, err)

	_, err = f.rooms.LeaveRoom(room.ID, "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.StatusOf(err))
}

func TestLeaveRoom_NonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	_, err := f.rooms.LeaveRoom(room.ID, "carol")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.StatusOf(err))
}

func TestIsActiveParticipant_CachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	member, err := f.rooms.IsActiveParticipant(room.ID, "alice")
	require.NoError(t, err)
	assert.True(t, member)

	// A write that bypasses the service leaves the cached answer in place.
	_, err = f.store.LeaveRoom(room.ID, "alice")
	require.NoError(t, err)

	member, err = f.rooms.IsActiveParticipant(room.ID, "alice")
	require.NoError(t, err)
	assert.True(t, member, "stale cached membership is expected within the TTL")

	f.caches.Membership.Invalidate(cache.MembershipKey(room.ID, "alice"))

	member, err = f.rooms.IsActiveParticipant(room.ID, "alice")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestGetRoomDetail(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")
	f.sendText(t, room.ID, "bob", "hi alice")

	_, err := f.rooms.GetRoomDetail("no-such-room", "alice")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.StatusOf(err))

	_, err = f.rooms.GetRoomDetail(room.ID, "carol")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.StatusOf(err))

	detail, err := f.rooms.GetRoomDetail(room.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, room.ID, detail.Room.ID)
	assert.Len(t, detail.Participants, 2)
	require.NotNil(t, detail.LastMessage)
	assert.Equal(t, "hi alice", *detail.LastMessage.Text)
	assert.EqualValues(t, 1, detail.UnreadCount)

	// Unread is per caller, even when the detail itself comes from cache.
	detail, err = f.rooms.GetRoomDetail(room.ID, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 0, detail.UnreadCount)
}

func TestGetRoomDetail_ReflectsNewMessageImmediately(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")
	f.sendText(t, room.ID, "bob", "first")

	detail, err := f.rooms.GetRoomDetail(room.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, detail.LastMessage)
	assert.Equal(t, "first", *detail.LastMessage.Text)

	// The send invalidates the cached detail, so the next read sees it.
	f.sendText(t, room.ID, "bob", "second")

	detail, err = f.rooms.GetRoomDetail(room.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, detail.LastMessage)
	assert.Equal(t, "second", *detail.LastMessage.Text)
	assert.EqualValues(t, 2, detail.UnreadCount)
}

func TestListRooms(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")
	f.sendText(t, room.ID, "bob", "hello")

	summaries, err := f.rooms.ListRooms("alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, room.ID, s.Room.ID)
	require.NotNil(t, s.Counterpart)
	assert.Equal(t, "bob", s.Counterpart.UserID)
	assert.Equal(t, "User bob", s.Counterpart.DisplayName)
	require.NotNil(t, s.LastMessage)
	assert.Equal(t, "hello", *s.LastMessage.Text)
	assert.EqualValues(t, 1, s.UnreadCount)

	// Users with no rooms get an empty list, not an error.
	none, err := f.rooms.ListRooms("carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListRooms_LeftRoomDisappears(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	summaries, err := f.rooms.ListRooms("alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	_, err = f.rooms.LeaveRoom(room.ID, "alice")
	require.NoError(t, err)

	// The leave invalidated the cached list.
	summaries, err = f.rooms.ListRooms("alice")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// The remaining participant still sees the room.
	summaries, err = f.rooms.ListRooms("bob")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestParticipants_OrderAndProfiles(t *testing.T) {
	f := newFixture(t)
	room := f.connectedRoom(t, "alice", "bob")

	got, err := f.rooms.Participants(room.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []models.ProfileSummary{
		{UserID: "alice", DisplayName: "User alice"},
		{UserID: "bob", DisplayName: "User bob"},
	}, got)
}
