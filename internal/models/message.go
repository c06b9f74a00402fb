package models

import "time"

// Message types. SYSTEM messages are produced by the backend itself.
const (
	MessageText   = "TEXT"
	MessageImage  = "IMAGE"
	MessageFile   = "FILE"
	MessageSystem = "SYSTEM"
)

// ValidMessageType reports whether t is a client-suppliable message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

// Message is a stored chat message. The auto-increment ID is the cursor key:
// it sorts monotonically, so (CreatedAt, ID) ordering survives timestamp
// collisions. Soft delete clears content but keeps the row for ordering
// continuity.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoomID   string `gorm:"type:uuid;not null;index:idx_room_msg" json:"room_id"`
	SenderID string `gorm:"type:text;not null;index:idx_room_msg" json:"sender_id"`

	Text *string `gorm:"type:text" json:"text,omitempty"`

	FileURL  *string `gorm:"type:text" json:"file_url,omitempty"`
	FileName *string `gorm:"type:text" json:"file_name,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`

	Type string `gorm:"type:text;not null" json:"type"`

	Edited  bool `gorm:"default:false" json:"edited"`
	Deleted bool `gorm:"default:false;index" json:"deleted"`
}

// HasFile reports whether the message carries a file descriptor.
func (m *Message) HasFile() bool { return m.FileURL != nil && *m.FileURL != "" }

// HasText reports whether the message carries non-empty text.
func (m *Message) HasText() bool { return m.Text != nil && *m.Text != "" }
