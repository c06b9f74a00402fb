package storage

import (
	"errors"
	"time"

	"linkup/backend/internal/models"

	"gorm.io/gorm"
)

// GetRoomByID returns the room or (nil, nil) when the id is unknown.
func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.Log.Errorw("failed to get room", "room_id", roomID, "err", err)
		return nil, err
	}
	return &room, nil
}

// GetRoomByConnectionID returns the room created from the given accepted
// connection, or (nil, nil) when none exists yet.
func (s *Service) GetRoomByConnectionID(connectionID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("connection_id = ?", connectionID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoomWithParticipants creates the room and one active participant row
// per user in a single transaction. The unique index on connection_id makes
// concurrent create-or-get calls collapse onto one room.
func (s *Service) CreateRoomWithParticipants(room *models.ChatRoom, userIDs []string) error {
	now := time.Now()
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, uid := range userIDs {
			p := models.ChatParticipant{
				RoomID:   room.ID,
				UserID:   uid,
				JoinedAt: now,
				Visible:  true,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RoomsForUser returns the active rooms the user is an active participant of,
// newest first.
func (s *Service) RoomsForUser(userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.DB.
		Joins("JOIN chat_participants ON chat_participants.room_id = chat_rooms.id").
		Where("chat_participants.user_id = ? AND chat_participants.left_at IS NULL", userID).
		Where("chat_rooms.status = ?", models.RoomActive).
		Order("chat_rooms.created_at DESC").
		Find(&rooms).Error
	if err != nil {
		s.Log.Errorw("failed to list rooms for user", "user_id", userID, "err", err)
		return nil, err
	}
	return rooms, nil
}

// ActiveRoomIDsForUser returns ids of active rooms the user belongs to. Used by
// the hub to rebuild the connection index on (re)connect.
func (s *Service) ActiveRoomIDsForUser(userID string) ([]string, error) {
	var roomIDs []string
	err := s.DB.Model(&models.ChatParticipant{}).
		Scopes(activeParticipantScope).
		Where("user_id = ?", userID).
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, err
	}
	return roomIDs, nil
}

// ActiveParticipants returns the active membership rows of a room.
func (s *Service) ActiveParticipants(roomID string) ([]models.ChatParticipant, error) {
	var participants []models.ChatParticipant
	err := s.DB.Scopes(activeParticipantScope).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// GetActiveParticipant returns the caller's active row in the room, or
// (nil, nil) when the user is not an active participant.
func (s *Service) GetActiveParticipant(roomID, userID string) (*models.ChatParticipant, error) {
	var p models.ChatParticipant
	err := s.DB.Scopes(activeParticipantScope).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LeaveRoom marks the caller's active participant row as left and invisible,
// then archives the room when no active participants remain. All steps commit
// in one transaction; partial application cannot occur.
func (s *Service) LeaveRoom(roomID, userID string) (bool, error) {
	archived := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.ChatParticipant
		err := activeParticipantScope(tx).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveParticipant
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&p).Updates(map[string]interface{}{
			"left_at": now,
			"visible": false,
		}).Error; err != nil {
			return err
		}

		var remaining int64
		if err := activeParticipantScope(tx.Model(&models.ChatParticipant{})).
			Where("room_id = ?", roomID).
			Count(&remaining).Error; err != nil {
			return err
		}

		if remaining == 0 {
			if err := tx.Model(&models.ChatRoom{}).
				Where("id = ?", roomID).
				Update("status", models.RoomArchived).Error; err != nil {
				return err
			}
			archived = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return archived, nil
}

// ArchiveEmptyRooms flips any active room without active participants to
// archived. Safety net for the reconciliation job; LeaveRoom already archives
// inline.
func (s *Service) ArchiveEmptyRooms() (int64, error) {
	res := s.DB.Model(&models.ChatRoom{}).
		Where("status = ?", models.RoomActive).
		Where("NOT EXISTS (SELECT 1 FROM chat_participants WHERE chat_participants.room_id = chat_rooms.id AND chat_participants.left_at IS NULL)").
		Update("status", models.RoomArchived)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
