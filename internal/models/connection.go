package models

import "time"

// Connection status values mirrored from the networking service's schema.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// Connection is the mutual-pairing record owned by the networking service.
// Chat only ever asks "is there an accepted connection between these two
// users", in either direction.
type Connection struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID string    `gorm:"type:text;not null;index:idx_conn_pair" json:"requester_id"`
	AddresseeID string    `gorm:"type:text;not null;index:idx_conn_pair" json:"addressee_id"`
	Status      string    `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
