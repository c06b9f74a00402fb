package models

import "time"

// ChatParticipant is a (room, user) membership record. Rows are never deleted:
// leaving sets LeftAt and clears Visible so ordering history stays intact.
// For a given (room, user) pair at most one row has LeftAt == nil.
type ChatParticipant struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID string `gorm:"type:uuid;not null;index:idx_room_user" json:"room_id"`
	UserID string `gorm:"type:text;not null;index:idx_room_user" json:"user_id"`

	JoinedAt time.Time  `gorm:"not null" json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
	Visible  bool       `gorm:"default:true" json:"visible"`

	// LastReadMessageID is the forward-only read pointer used for unread counts.
	LastReadMessageID *uint `json:"last_read_message_id,omitempty"`
}

// Active is the single membership predicate every "active participants" query
// and check goes through.
func (p *ChatParticipant) Active() bool { return p.LeftAt == nil }
