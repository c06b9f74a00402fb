package chat

import (
	"time"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/models"
	"linkup/backend/internal/storage"

	"go.uber.org/zap"
)

// ReadTracker maintains each participant's forward-only read pointer and
// computes unread counts from it.
type ReadTracker struct {
	store  storage.Storage
	caches *cache.ChatCaches
	log    *zap.SugaredLogger
}

func NewReadTracker(store storage.Storage, caches *cache.ChatCaches, log *zap.SugaredLogger) *ReadTracker {
	return &ReadTracker{store: store, caches: caches, log: log}
}

func (t *ReadTracker) activeParticipant(roomID, userID string) (*models.ChatParticipant, error) {
	p, err := t.store.GetActiveParticipant(roomID, userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load participant")
	}
	if p == nil {
		return nil, apperr.New(apperr.Forbidden, "not an active participant of this room")
	}
	return p, nil
}

// pointerTime resolves the read pointer to the pointed message's timestamp.
// Unset pointers (and pointers to rows that no longer resolve) mean "count
// everything".
func (t *ReadTracker) pointerTime(p *models.ChatParticipant) (*time.Time, error) {
	if p.LastReadMessageID == nil {
		return nil, nil
	}
	msg, err := t.store.GetMessageByID(*p.LastReadMessageID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to resolve read pointer")
	}
	if msg == nil {
		return nil, nil
	}
	return &msg.CreatedAt, nil
}

// UnreadCount counts non-deleted messages from other senders newer than the
// reader's pointer.
func (t *ReadTracker) UnreadCount(roomID, userID string) (int64, error) {
	p, err := t.activeParticipant(roomID, userID)
	if err != nil {
		return 0, err
	}
	after, err := t.pointerTime(p)
	if err != nil {
		return 0, err
	}
	count, err := t.store.CountMessagesAfter(roomID, userID, after, 0)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.Internal, "failed to count unread messages")
	}
	return count, nil
}

// MarkAllRead advances the pointer to the newest qualifying unread message in
// a single update. Returns how many messages became read so callers can decide
// whether to notify the counterpart.
func (t *ReadTracker) MarkAllRead(roomID, userID string) (int64, uint, error) {
	p, err := t.activeParticipant(roomID, userID)
	if err != nil {
		return 0, 0, err
	}
	after, err := t.pointerTime(p)
	if err != nil {
		return 0, 0, err
	}

	newest, err := t.store.NewestMessageAfter(roomID, userID, after)
	if err != nil {
		return 0, 0, apperr.Wrap(err, apperr.Internal, "failed to find newest unread message")
	}
	if newest == nil {
		return 0, 0, nil
	}

	// Capped at the pointer target: a message landing after the newest-unread
	// lookup stays unread and must not be reported as read.
	count, err := t.store.CountMessagesAfter(roomID, userID, after, newest.ID)
	if err != nil {
		return 0, 0, apperr.Wrap(err, apperr.Internal, "failed to count unread messages")
	}

	if err := t.store.SetReadPointer(p.ID, newest.ID); err != nil {
		return 0, 0, apperr.Wrap(err, apperr.Internal, "failed to advance read pointer")
	}

	// The reader's cached room list carries unread counts that just changed.
	t.caches.RoomList.Invalidate(cache.RoomListKey(userID))
	return count, newest.ID, nil
}

// FirstUnreadID returns the oldest qualifying unread message id, or 0 when the
// reader is fully caught up. Lets clients jump straight to the first unseen
// message.
func (t *ReadTracker) FirstUnreadID(roomID, userID string) (uint, error) {
	p, err := t.activeParticipant(roomID, userID)
	if err != nil {
		return 0, err
	}
	after, err := t.pointerTime(p)
	if err != nil {
		return 0, err
	}
	oldest, err := t.store.OldestMessageAfter(roomID, userID, after)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.Internal, "failed to find first unread message")
	}
	if oldest == nil {
		return 0, nil
	}
	return oldest.ID, nil
}
