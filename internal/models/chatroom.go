package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room status values. Rooms are archived, never deleted.
const (
	RoomActive   = "active"
	RoomArchived = "archived"
)

// ChatRoom is a persistent 1-on-1 chat context between two connected users.
// The unique index on ConnectionID guarantees at most one room per accepted
// connection.
type ChatRoom struct {
	// ID is the unique identifier for the chat room (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// ConnectionID links the room to the accepted connection it was created from.
	ConnectionID *uint `gorm:"uniqueIndex" json:"connection_id,omitempty"`
	// Status is either "active" or "archived".
	Status string `gorm:"type:text;not null;default:active" json:"status"`
	// CreatedAt is the timestamp when the chat room was created.
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook generating the room UUID when unset.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RoomActive
	}
	return
}

// IsActive reports whether the room still accepts joins and messages.
func (r *ChatRoom) IsActive() bool { return r.Status == RoomActive }
