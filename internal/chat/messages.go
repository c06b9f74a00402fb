package chat

import (
	"linkup/backend/internal/apperr"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/models"
	"linkup/backend/internal/storage"

	"go.uber.org/zap"
)

// Pagination bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page directions. Before walks towards older messages, after towards newer.
const (
	DirectionBefore = "before"
	DirectionAfter  = "after"
)

// MessageService owns message persistence rules: append with content
// validation, cursor pagination, edit, and soft delete.
type MessageService struct {
	store   storage.Storage
	caches  *cache.ChatCaches
	members MembershipChecker
	log     *zap.SugaredLogger
}

func NewMessageService(store storage.Storage, caches *cache.ChatCaches, members MembershipChecker, log *zap.SugaredLogger) *MessageService {
	return &MessageService{store: store, caches: caches, members: members, log: log}
}

func validateInput(in models.MessageInput) error {
	if !models.ValidMessageType(in.Type) {
		return apperr.Newf(apperr.InvalidInput, "unknown message type %q", in.Type)
	}
	if in.Type == models.MessageSystem {
		return apperr.New(apperr.InvalidInput, "system messages cannot be sent by clients")
	}
	if !in.HasText() && !in.HasFile() {
		return apperr.New(apperr.InvalidInput, "message requires text or a file")
	}
	switch in.Type {
	case models.MessageText:
		if !in.HasText() {
			return apperr.New(apperr.InvalidInput, "text message requires text")
		}
	case models.MessageImage, models.MessageFile:
		if !in.HasFile() {
			return apperr.New(apperr.InvalidInput, "file message requires a file descriptor")
		}
	}
	return nil
}

// Send validates and persists a message, then invalidates every cache entry
// the write made stale. Sending requires the counterpart to still be in the
// room; the caller broadcasts only after this returns.
func (s *MessageService) Send(roomID, senderID string, in models.MessageInput) (*models.Message, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoomByID(roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load room")
	}
	if room == nil {
		return nil, apperr.New(apperr.NotFound, "room not found")
	}
	if !room.IsActive() {
		return nil, apperr.New(apperr.Conflict, "room is archived")
	}

	participants, err := s.store.ActiveParticipants(roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load participants")
	}
	sender := false
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
		if p.UserID == senderID {
			sender = true
		}
	}
	if !sender {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this room")
	}
	if len(participants) < 2 {
		return nil, apperr.New(apperr.Conflict, "message undeliverable, recipient left")
	}

	msg := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Type:     in.Type,
		Text:     in.Text,
		FileURL:  in.FileURL,
		FileName: in.FileName,
		FileSize: in.FileSize,
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to save message")
	}

	s.caches.InvalidateRoomWrite(roomID, ids)
	return msg, nil
}

// Page returns one page of a room's messages by id cursor. before: id < cursor
// newest first (no cursor means the newest page); after: id > cursor oldest
// first. Soft-deleted rows are returned as cleared tombstones so chains have
// no gaps. The caller derives hasMore from len(result) == limit and the next
// cursor from the last row.
func (s *MessageService) Page(roomID, userID string, limit int, cursor uint, direction string) ([]models.Message, error) {
	member, err := s.members.IsActiveParticipant(roomID, userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to check membership")
	}
	if !member {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this room")
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	switch direction {
	case "", DirectionBefore:
		msgs, err := s.store.PageMessagesBefore(roomID, cursor, limit)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Internal, "failed to page messages")
		}
		return msgs, nil
	case DirectionAfter:
		msgs, err := s.store.PageMessagesAfter(roomID, cursor, limit)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Internal, "failed to page messages")
		}
		return msgs, nil
	default:
		return nil, apperr.Newf(apperr.InvalidInput, "unknown page direction %q", direction)
	}
}

// Edit rewrites the text of the editor's own TEXT message and flags it edited.
func (s *MessageService) Edit(messageID uint, editorID, newText string) (*models.Message, error) {
	if newText == "" {
		return nil, apperr.New(apperr.InvalidInput, "new text must not be empty")
	}

	msg, err := s.store.GetMessageByID(messageID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load message")
	}
	if msg == nil {
		return nil, apperr.New(apperr.NotFound, "message not found")
	}
	if msg.SenderID != editorID {
		return nil, apperr.New(apperr.Forbidden, "only the sender can edit a message")
	}
	if msg.Type != models.MessageText {
		return nil, apperr.New(apperr.InvalidInput, "only text messages can be edited")
	}
	if msg.Deleted {
		return nil, apperr.New(apperr.InvalidInput, "cannot edit a deleted message")
	}

	msg.Text = &newText
	msg.Edited = true
	if err := s.store.SaveMessage(msg); err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to save message")
	}

	s.invalidateRoom(msg.RoomID)
	return msg, nil
}

// SoftDelete clears the content of the editor's own message but keeps the row
// for ordering continuity. Deleting an already-deleted message is a Conflict,
// not a no-op.
func (s *MessageService) SoftDelete(messageID uint, editorID string) (*models.Message, error) {
	msg, err := s.store.GetMessageByID(messageID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load message")
	}
	if msg == nil {
		return nil, apperr.New(apperr.NotFound, "message not found")
	}
	if msg.SenderID != editorID {
		return nil, apperr.New(apperr.Forbidden, "only the sender can delete a message")
	}
	if msg.Deleted {
		return nil, apperr.New(apperr.Conflict, "message already deleted")
	}

	msg.Text = nil
	msg.FileURL = nil
	msg.FileName = nil
	msg.FileSize = nil
	msg.Deleted = true
	if err := s.store.SaveMessage(msg); err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to save message")
	}

	s.invalidateRoom(msg.RoomID)
	return msg, nil
}

func (s *MessageService) invalidateRoom(roomID string) {
	participants, err := s.store.ActiveParticipants(roomID)
	if err != nil {
		s.log.Warnw("cache invalidation skipped", "room_id", roomID, "err", err)
		return
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	s.caches.InvalidateRoomWrite(roomID, ids)
}
