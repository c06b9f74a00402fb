package storage

import (
	"errors"
	"time"

	"linkup/backend/internal/models"

	"gorm.io/gorm"
)

// CreateMessage persists a new message. The auto-increment ID written back into
// msg is the pagination cursor.
func (s *Service) CreateMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		s.Log.Errorw("failed to save message", "room_id", msg.RoomID, "err", err)
		return err
	}
	return nil
}

// SaveMessage persists updates of an existing message (edit, soft delete).
func (s *Service) SaveMessage(msg *models.Message) error {
	return s.DB.Save(msg).Error
}

// GetMessageByID returns the message or (nil, nil) when the id is unknown.
func (s *Service) GetMessageByID(id uint) (*models.Message, error) {
	var msg models.Message
	err := s.DB.First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// PageMessagesBefore returns up to limit messages with id < cursor, newest
// first. cursor == 0 means "from the newest". Soft-deleted rows are included so
// cursor chains stay gap-free; their content fields are already cleared.
func (s *Service) PageMessagesBefore(roomID string, cursor uint, limit int) ([]models.Message, error) {
	q := s.DB.Where("room_id = ?", roomID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var msgs []models.Message
	if err := q.Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// PageMessagesAfter returns up to limit messages with id > cursor, oldest
// first.
func (s *Service) PageMessagesAfter(roomID string, cursor uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.Where("room_id = ? AND id > ?", roomID, cursor).
		Order("id ASC").Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// LastMessage returns the newest non-deleted message of the room, or
// (nil, nil) for an empty room.
func (s *Service) LastMessage(roomID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Where("room_id = ? AND deleted = ?", roomID, false).
		Order("id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// unreadScope narrows to messages that count as unread for a reader: sent by
// someone else, not soft-deleted, and strictly newer than the read pointer's
// timestamp when one is set.
func unreadScope(db *gorm.DB, roomID, excludeSender string, after *time.Time) *gorm.DB {
	q := db.Where("room_id = ? AND sender_id <> ? AND deleted = ?", roomID, excludeSender, false)
	if after != nil {
		q = q.Where("created_at > ?", *after)
	}
	return q
}

// CountMessagesAfter counts non-deleted messages from other senders created
// strictly after the given time (all of them when after is nil). A non-zero
// upTo caps the count at that message id so a concurrent insert between
// picking a pointer target and counting cannot inflate the result.
func (s *Service) CountMessagesAfter(roomID, excludeSender string, after *time.Time, upTo uint) (int64, error) {
	q := unreadScope(s.DB.Model(&models.Message{}), roomID, excludeSender, after)
	if upTo > 0 {
		q = q.Where("id <= ?", upTo)
	}
	var count int64
	err := q.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// NewestMessageAfter returns the newest message qualifying as unread, or
// (nil, nil) when there is none.
func (s *Service) NewestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error) {
	var msg models.Message
	err := unreadScope(s.DB, roomID, excludeSender, after).
		Order("id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// OldestMessageAfter returns the oldest message qualifying as unread, or
// (nil, nil) when there is none.
func (s *Service) OldestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error) {
	var msg models.Message
	err := unreadScope(s.DB, roomID, excludeSender, after).
		Order("id ASC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetReadPointer advances a participant's read pointer in one update.
func (s *Service) SetReadPointer(participantID, messageID uint) error {
	return s.DB.Model(&models.ChatParticipant{}).
		Where("id = ?", participantID).
		Update("last_read_message_id", messageID).Error
}
