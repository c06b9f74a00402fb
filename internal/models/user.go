package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is the profile row the chat layer reads display data from. Profile CRUD
// itself is owned by another service; chat only embeds the summary fields.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	DisplayName string         `gorm:"type:text;not null" json:"display_name"`
	AvatarURL   *string        `gorm:"type:text" json:"avatar_url,omitempty"`
	Headline    string         `gorm:"type:text" json:"headline"`
	Skills      pq.StringArray `gorm:"type:text[]" json:"skills"`
}

// BeforeCreate generates a UUID for the user when ID is unset.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// ProfileSummary is the slice of a user embedded in participant and sender
// payloads.
type ProfileSummary struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Summary projects the user into its chat-facing form.
func (u *User) Summary() ProfileSummary {
	return ProfileSummary{UserID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}
