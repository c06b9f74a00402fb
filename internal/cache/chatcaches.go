package cache

import (
	"time"

	"linkup/backend/internal/models"
)

// DefaultTTL bounds how stale any chat cache entry can get.
const DefaultTTL = 30 * time.Second

// ChatCaches bundles the three read-through caches guarding the hot queries:
// room list by user, participant membership, and room detail.
type ChatCaches struct {
	RoomList   *Cache[[]models.RoomSummary]
	Membership *Cache[bool]
	RoomDetail *Cache[models.RoomDetail]
}

// NewChatCaches builds the cache set with a shared TTL.
func NewChatCaches(ttl time.Duration) *ChatCaches {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ChatCaches{
		RoomList:   New[[]models.RoomSummary](ttl),
		Membership: New[bool](ttl),
		RoomDetail: New[models.RoomDetail](ttl),
	}
}

// Cache keys are (query-kind, parameters).

func RoomListKey(userID string) string { return "roomlist:" + userID }

func MembershipKey(roomID, userID string) string { return "member:" + roomID + ":" + userID }

func RoomDetailKey(roomID string) string { return "detail:" + roomID }

// InvalidateRoomWrite drops every entry a room-affecting write (new message,
// participant leave) could have made stale: the room's detail entry plus the
// room-list and membership entries of each given participant.
func (cc *ChatCaches) InvalidateRoomWrite(roomID string, participantIDs []string) {
	cc.RoomDetail.Invalidate(RoomDetailKey(roomID))
	for _, uid := range participantIDs {
		cc.RoomList.Invalidate(RoomListKey(uid))
		cc.Membership.Invalidate(MembershipKey(roomID, uid))
	}
}

// SweepExpired removes expired entries across all three maps.
func (cc *ChatCaches) SweepExpired() {
	cc.RoomList.DeleteExpired()
	cc.Membership.DeleteExpired()
	cc.RoomDetail.DeleteExpired()
}
