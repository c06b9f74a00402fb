package chathub

import (
	"encoding/json"

	"linkup/backend/internal/models"
)

// startPubSubListener relays broadcast envelopes from the storage pub/sub
// subscription into the hub's run loop. With no subscription available the hub
// still works for everything but cross-process fan-out.
func (m *Manager) startPubSubListener() {
	pubsub := m.store.SubscribeRoomEvents()
	if pubsub == nil {
		return
	}

	go func() {
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var b models.RoomBroadcast
			if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
				m.log.Warnw("dropping malformed broadcast envelope", "channel", msg.Channel, "err", err)
				continue
			}
			m.PubSubCh <- b
		}
	}()
}
