package storage

import (
	"context"
	"errors"
	"time"

	"linkup/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoActiveParticipant is returned by LeaveRoom when the caller has no
// active membership row in the room.
var ErrNoActiveParticipant = errors.New("no active participant row")

// Storage is the durable source of truth for rooms, participants, messages and
// read pointers, plus the pub/sub relay used for room broadcasts. The cache and
// the hub's connection index are convenience state layered on top of it.
type Storage interface {
	// Rooms and participants
	GetRoomByID(roomID string) (*models.ChatRoom, error)
	GetRoomByConnectionID(connectionID uint) (*models.ChatRoom, error)
	CreateRoomWithParticipants(room *models.ChatRoom, userIDs []string) error
	RoomsForUser(userID string) ([]models.ChatRoom, error)
	ActiveRoomIDsForUser(userID string) ([]string, error)
	ActiveParticipants(roomID string) ([]models.ChatParticipant, error)
	GetActiveParticipant(roomID, userID string) (*models.ChatParticipant, error)
	LeaveRoom(roomID, userID string) (archived bool, err error)
	ArchiveEmptyRooms() (int64, error)

	// Messages
	CreateMessage(msg *models.Message) error
	SaveMessage(msg *models.Message) error
	GetMessageByID(id uint) (*models.Message, error)
	PageMessagesBefore(roomID string, cursor uint, limit int) ([]models.Message, error)
	PageMessagesAfter(roomID string, cursor uint, limit int) ([]models.Message, error)
	LastMessage(roomID string) (*models.Message, error)

	// Read tracking
	CountMessagesAfter(roomID, excludeSender string, after *time.Time, upTo uint) (int64, error)
	NewestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error)
	OldestMessageAfter(roomID, excludeSender string, after *time.Time) (*models.Message, error)
	SetReadPointer(participantID, messageID uint) error

	// Broadcast relay
	PublishRoomEvent(b models.RoomBroadcast) error
	SubscribeRoomEvents() *redis.PubSub
}

// Service implements Storage on PostgreSQL (gorm) and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
	Log   *zap.SugaredLogger
}

// NewService constructs the storage service.
func NewService(db *gorm.DB, rdb *redis.Client, log *zap.SugaredLogger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
		Log:   log,
	}
}

// activeParticipantScope narrows a query to active membership rows. Every
// "active participants" read goes through this one predicate.
func activeParticipantScope(db *gorm.DB) *gorm.DB {
	return db.Where("left_at IS NULL")
}
