// Package platform holds the narrow adapters to the collaborating services the
// chat layer consumes: accepted-connection lookup, profile summaries, and file
// intake. Their internals belong to other teams; chat only sees these
// interfaces.
package platform

import (
	"errors"

	"linkup/backend/internal/models"

	"gorm.io/gorm"
)

// Connections answers whether two users have a mutually accepted pairing.
type Connections interface {
	// AcceptedBetween returns the accepted connection between the two users in
	// either direction, or (nil, nil) when there is none.
	AcceptedBetween(userA, userB string) (*models.Connection, error)
}

// GormConnections reads the networking service's connections table directly.
type GormConnections struct {
	db *gorm.DB
}

func NewGormConnections(db *gorm.DB) *GormConnections {
	return &GormConnections{db: db}
}

func (c *GormConnections) AcceptedBetween(userA, userB string) (*models.Connection, error) {
	var conn models.Connection
	err := c.db.
		Where("status = ?", models.ConnectionAccepted).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
