package storage

import (
	"encoding/json"

	"linkup/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "chatroom:"

// RoomChannel builds the pub/sub channel name for a room.
func RoomChannel(roomID string) string { return roomChannelPrefix + roomID }

// PublishRoomEvent publishes a broadcast envelope on the room's channel. It is
// called only after the underlying write has durably committed.
func (s *Service) PublishRoomEvent(b models.RoomBroadcast) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(s.Ctx, RoomChannel(b.RoomID), payload).Err(); err != nil {
		s.Log.Errorw("failed to publish room event", "room_id", b.RoomID, "err", err)
		return err
	}
	return nil
}

// SubscribeRoomEvents subscribes to every room channel. The hub fans received
// envelopes out to its locally connected members.
func (s *Service) SubscribeRoomEvents() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, roomChannelPrefix+"*")
}
