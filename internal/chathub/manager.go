package chathub

import (
	"time"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/models"
	"linkup/backend/internal/storage"

	"go.uber.org/zap"
)

// Manager is the real-time gateway hub. Its run loop is the single owner of
// the connection registry; every register, disconnect, and client event is
// funneled through channels so index mutations never race. Durable work goes
// through the chat services; broadcasts ride the storage pub/sub relay and
// come back through PubSubCh for local fan-out.
type Manager struct {
	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan InboundEvent
	PubSubCh     chan models.RoomBroadcast

	registry *registry

	store    storage.Storage
	rooms    *chat.RoomService
	messages *chat.MessageService
	reads    *chat.ReadTracker
	log      *zap.SugaredLogger
}

func NewManager(
	store storage.Storage,
	rooms *chat.RoomService,
	messages *chat.MessageService,
	reads *chat.ReadTracker,
	log *zap.SugaredLogger,
) *Manager {
	return &Manager{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan InboundEvent),
		PubSubCh:     make(chan models.RoomBroadcast, 64),
		registry:     newRegistry(),
		store:        store,
		rooms:        rooms,
		messages:     messages,
		reads:        reads,
		log:          log,
	}
}

// Run drives the hub. Call it in its own goroutine.
func (m *Manager) Run() {
	m.startPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)
		case client := <-m.UnregisterCh:
			m.unregister(client)
		case in := <-m.IncomingCh:
			m.handleEvent(in)
		case b := <-m.PubSubCh:
			m.deliverBroadcast(b)
		}
	}
}

// register installs the connection and silently rejoins the rooms the user is
// an active participant of, so a reconnect needs no per-room re-authorization.
func (m *Manager) register(c Client) {
	userID := c.GetUserID()
	if old, ok := m.registry.client(userID); ok && old != c {
		old.Close()
	}
	m.registry.setClient(c)

	roomIDs, err := m.store.ActiveRoomIDsForUser(userID)
	if err != nil {
		// The durable rows are the source of truth; joins will re-populate.
		m.log.Warnw("failed to restore room membership", "user_id", userID, "err", err)
	} else {
		for _, roomID := range roomIDs {
			m.registry.join(roomID, userID)
		}
	}

	m.send(c, models.ServerEvent{
		Event: models.EventConnected,
		Data: map[string]any{
			"user_id":   userID,
			"timestamp": time.Now().UTC(),
		},
	})
	m.log.Infow("client connected", "user_id", userID, "restored_rooms", len(roomIDs))
}

// unregister prunes only the live-connection entry; room membership is kept
// for reconnection. A deliberate room:leave is the only thing that prunes
// membership.
func (m *Manager) unregister(c Client) {
	if m.registry.dropConnection(c) {
		c.Close()
		m.log.Infow("client disconnected", "user_id", c.GetUserID())
	}
}

func (m *Manager) handleEvent(in InboundEvent) {
	// A frame from a superseded connection can still be in flight after its
	// replacement registered and the old Send channel was closed. Replying to
	// it would panic the run loop, so events are only handled for the
	// connection currently registered for the user.
	if current, ok := m.registry.client(in.Client.GetUserID()); !ok || current != in.Client {
		return
	}

	switch in.Event.Event {
	case models.EventRoomJoin:
		m.handleJoin(in.Client, in.Event.RoomID)
	case models.EventRoomLeave:
		m.handleLeave(in.Client, in.Event.RoomID)
	case models.EventMessageSend:
		m.handleSend(in.Client, in.Event)
	default:
		m.sendError(in.Client, models.EventError, in.Event.RoomID,
			apperr.Newf(apperr.InvalidInput, "unknown event %q", in.Event.Event))
	}
}

func (m *Manager) handleJoin(c Client, roomID string) {
	userID := c.GetUserID()

	member, err := m.rooms.IsActiveParticipant(roomID, userID)
	if err != nil {
		m.sendError(c, models.EventError, roomID, err)
		return
	}
	if !member {
		m.sendError(c, models.EventError, roomID, apperr.New(apperr.Forbidden, "not a participant of this room"))
		return
	}

	m.registry.join(roomID, userID)

	// Read-state freshness matters less than presence: failures here are
	// logged and swallowed, the join still succeeds.
	becameRead, lastReadID, err := m.reads.MarkAllRead(roomID, userID)
	if err != nil {
		m.log.Warnw("mark-all-read failed during join", "room_id", roomID, "user_id", userID, "err", err)
	} else if becameRead > 0 {
		m.publish(models.RoomBroadcast{
			RoomID:        roomID,
			ExcludeUserID: userID,
			Payload: models.ServerEvent{
				Event:  models.EventMessageRead,
				RoomID: roomID,
				Data:   models.ReadReceipt{RoomID: roomID, ReaderID: userID, LastReadMessageID: lastReadID},
			},
		})
	}

	m.publish(models.RoomBroadcast{
		RoomID:        roomID,
		ExcludeUserID: userID,
		Payload: models.ServerEvent{
			Event:  models.EventUserJoined,
			RoomID: roomID,
			Data:   map[string]any{"user_id": userID},
		},
	})

	participants, err := m.rooms.Participants(roomID)
	if err != nil {
		m.log.Warnw("failed to load participants for join ack", "room_id", roomID, "err", err)
	}
	m.send(c, models.ServerEvent{
		Event:  models.EventRoomJoined,
		RoomID: roomID,
		Data:   map[string]any{"participants": participants},
	})
}

// handleLeave performs the durable leave first; local state changes only after
// that commit succeeds.
func (m *Manager) handleLeave(c Client, roomID string) {
	userID := c.GetUserID()

	archived, err := m.rooms.LeaveRoom(roomID, userID)
	if err != nil {
		m.sendError(c, models.EventError, roomID, err)
		return
	}

	m.registry.leave(roomID, userID)

	m.send(c, models.ServerEvent{
		Event:  models.EventRoomLeft,
		RoomID: roomID,
		Data:   map[string]any{"archived": archived},
	})

	m.publish(models.RoomBroadcast{
		RoomID:        roomID,
		ExcludeUserID: userID,
		Payload: models.ServerEvent{
			Event:  models.EventUserLeft,
			RoomID: roomID,
			Data:   map[string]any{"user_id": userID},
		},
	})
}

// handleSend validates and persists through the message service, acknowledges
// the sender with the saved message, and only then publishes the broadcast.
// Every failure goes to the sender alone, never to the room.
func (m *Manager) handleSend(c Client, ev models.ClientEvent) {
	userID := c.GetUserID()

	msg, err := m.messages.Send(ev.RoomID, userID, models.MessageInput{
		Type:     ev.Type,
		Text:     ev.Text,
		FileURL:  ev.FileURL,
		FileName: ev.FileName,
		FileSize: ev.FileSize,
	})
	if err != nil {
		m.sendError(c, models.EventMessageError, ev.RoomID, err)
		return
	}

	m.send(c, models.ServerEvent{
		Event:  models.EventMessageSaved,
		RoomID: ev.RoomID,
		Data:   msg,
	})

	m.publish(models.RoomBroadcast{
		RoomID:        ev.RoomID,
		ExcludeUserID: userID,
		Payload: models.ServerEvent{
			Event:  models.EventNewMessage,
			RoomID: ev.RoomID,
			Data:   msg,
		},
	})
}

// deliverBroadcast fans a pub/sub envelope out to the locally connected
// members of the room.
func (m *Manager) deliverBroadcast(b models.RoomBroadcast) {
	// A leave performed over REST (possibly on another node) arrives here as
	// its user_left envelope; prune the leaver from the local index so they
	// stop receiving the room's broadcasts. Idempotent for ws-initiated
	// leaves, which already pruned.
	if b.Payload.Event == models.EventUserLeft && b.ExcludeUserID != "" {
		m.registry.leave(b.RoomID, b.ExcludeUserID)
	}

	for userID := range m.registry.membersOf(b.RoomID) {
		if userID == b.ExcludeUserID {
			continue
		}
		client, ok := m.registry.client(userID)
		if !ok {
			continue
		}
		m.send(client, b.Payload)
	}
}

func (m *Manager) publish(b models.RoomBroadcast) {
	if err := m.store.PublishRoomEvent(b); err != nil {
		m.log.Errorw("broadcast publish failed", "room_id", b.RoomID, "event", b.Payload.Event, "err", err)
	}
}

// send delivers without blocking the run loop; a client whose buffer is full
// misses the event (best-effort delivery).
func (m *Manager) send(c Client, ev models.ServerEvent) {
	select {
	case c.GetSendChannel() <- ev:
	default:
		m.log.Warnw("dropping event for slow client", "user_id", c.GetUserID(), "event", ev.Event)
	}
}

func (m *Manager) sendError(c Client, event, roomID string, err error) {
	m.send(c, models.ServerEvent{
		Event:  event,
		RoomID: roomID,
		Error:  apperr.MessageOf(err),
		Data:   map[string]any{"status": string(apperr.StatusOf(err))},
	})
	if apperr.StatusOf(err) == apperr.Internal {
		m.log.Errorw("internal error in event handler", "user_id", c.GetUserID(), "err", err)
	}
}
