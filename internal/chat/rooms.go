package chat

import (
	"errors"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/cache"
	"linkup/backend/internal/models"
	"linkup/backend/internal/platform"
	"linkup/backend/internal/storage"

	"go.uber.org/zap"
)

// RoomService owns the room lifecycle: create-or-get from an accepted
// connection, listing, detail, membership checks, and soft-leave with
// auto-archival.
type RoomService struct {
	store       storage.Storage
	caches      *cache.ChatCaches
	connections platform.Connections
	profiles    platform.Profiles
	reads       *ReadTracker
	log         *zap.SugaredLogger
}

func NewRoomService(
	store storage.Storage,
	caches *cache.ChatCaches,
	connections platform.Connections,
	profiles platform.Profiles,
	reads *ReadTracker,
	log *zap.SugaredLogger,
) *RoomService {
	return &RoomService{
		store:       store,
		caches:      caches,
		connections: connections,
		profiles:    profiles,
		reads:       reads,
		log:         log,
	}
}

// CreateOrGetRoom returns the room for the accepted connection between the two
// users, creating it with both participants on first call. Idempotent in
// either argument order.
func (s *RoomService) CreateOrGetRoom(currentUser, counterpart string) (*models.ChatRoom, error) {
	if currentUser == counterpart {
		return nil, apperr.New(apperr.InvalidInput, "cannot open a chat with yourself")
	}

	// Queried fresh on every call; connection state is never cached.
	conn, err := s.connections.AcceptedBetween(currentUser, counterpart)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to check connection")
	}
	if conn == nil {
		return nil, apperr.New(apperr.Forbidden, "no accepted connection between the users")
	}

	room, err := s.store.GetRoomByConnectionID(conn.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to look up room")
	}
	if room != nil {
		return room, nil
	}

	room = &models.ChatRoom{ConnectionID: &conn.ID, Status: models.RoomActive}
	if err := s.store.CreateRoomWithParticipants(room, []string{currentUser, counterpart}); err != nil {
		// A concurrent call may have won the unique index on connection_id.
		if existing, lookupErr := s.store.GetRoomByConnectionID(conn.ID); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperr.Wrap(err, apperr.Internal, "failed to create room")
	}

	s.log.Infow("chat room created", "room_id", room.ID, "connection_id", conn.ID)
	return room, nil
}

// IsActiveParticipant is the cache-fronted membership check.
func (s *RoomService) IsActiveParticipant(roomID, userID string) (bool, error) {
	return s.caches.Membership.GetOrCompute(cache.MembershipKey(roomID, userID), func() (bool, error) {
		p, err := s.store.GetActiveParticipant(roomID, userID)
		if err != nil {
			return false, err
		}
		return p != nil, nil
	})
}

// ListRooms returns the caller's active rooms with counterpart summary, last
// message and unread count, cache-fronted per user.
func (s *RoomService) ListRooms(userID string) ([]models.RoomSummary, error) {
	return s.caches.RoomList.GetOrCompute(cache.RoomListKey(userID), func() ([]models.RoomSummary, error) {
		rooms, err := s.store.RoomsForUser(userID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.Internal, "failed to list rooms")
		}

		summaries := make([]models.RoomSummary, 0, len(rooms))
		for _, room := range rooms {
			summary := models.RoomSummary{Room: room}

			participants, err := s.store.ActiveParticipants(room.ID)
			if err != nil {
				return nil, apperr.Wrap(err, apperr.Internal, "failed to load participants")
			}
			for _, p := range participants {
				if p.UserID == userID {
					continue
				}
				profile, err := s.profiles.Summary(p.UserID)
				if err != nil {
					return nil, apperr.Wrap(err, apperr.Internal, "failed to load profile")
				}
				summary.Counterpart = &profile
				break
			}

			last, err := s.store.LastMessage(room.ID)
			if err != nil {
				return nil, apperr.Wrap(err, apperr.Internal, "failed to load last message")
			}
			summary.LastMessage = last

			unread, err := s.reads.UnreadCount(room.ID, userID)
			if err != nil {
				return nil, err
			}
			summary.UnreadCount = unread

			summaries = append(summaries, summary)
		}
		return summaries, nil
	})
}

// GetRoomDetail returns the room with active participants, the most recent
// non-deleted message, and the caller's unread count. NotFound for unknown ids,
// Forbidden for non-participants.
func (s *RoomService) GetRoomDetail(roomID, userID string) (*models.RoomDetail, error) {
	room, err := s.store.GetRoomByID(roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load room")
	}
	if room == nil {
		return nil, apperr.New(apperr.NotFound, "room not found")
	}

	member, err := s.IsActiveParticipant(roomID, userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to check membership")
	}
	if !member {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this room")
	}

	// The cached slice is shared across requesters; unread is per caller and
	// filled in below.
	detail, err := s.caches.RoomDetail.GetOrCompute(cache.RoomDetailKey(roomID), func() (models.RoomDetail, error) {
		participants, err := s.store.ActiveParticipants(roomID)
		if err != nil {
			return models.RoomDetail{}, apperr.Wrap(err, apperr.Internal, "failed to load participants")
		}
		ids := make([]string, 0, len(participants))
		for _, p := range participants {
			ids = append(ids, p.UserID)
		}
		profiles, err := s.profiles.Summaries(ids)
		if err != nil {
			return models.RoomDetail{}, apperr.Wrap(err, apperr.Internal, "failed to load profiles")
		}
		summaries := make([]models.ProfileSummary, 0, len(ids))
		for _, id := range ids {
			summaries = append(summaries, profiles[id])
		}

		last, err := s.store.LastMessage(roomID)
		if err != nil {
			return models.RoomDetail{}, apperr.Wrap(err, apperr.Internal, "failed to load last message")
		}

		return models.RoomDetail{Room: *room, Participants: summaries, LastMessage: last}, nil
	})
	if err != nil {
		return nil, err
	}

	unread, err := s.reads.UnreadCount(roomID, userID)
	if err != nil {
		return nil, err
	}
	detail.UnreadCount = unread
	return &detail, nil
}

// ActiveParticipantIDs returns the user ids of a room's active participants.
func (s *RoomService) ActiveParticipantIDs(roomID string) ([]string, error) {
	participants, err := s.store.ActiveParticipants(roomID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// Participants returns profile summaries of the room's active participants,
// join order preserved.
func (s *RoomService) Participants(roomID string) ([]models.ProfileSummary, error) {
	ids, err := s.ActiveParticipantIDs(roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load participants")
	}
	profiles, err := s.profiles.Summaries(ids)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "failed to load profiles")
	}
	summaries := make([]models.ProfileSummary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, profiles[id])
	}
	return summaries, nil
}

// LeaveRoom marks the caller as left and archives the room when it was the
// last active participant, in one durable transaction, then invalidates the
// caches the write made stale. Returns whether the room got archived.
func (s *RoomService) LeaveRoom(roomID, userID string) (bool, error) {
	// Snapshot membership before the leave so the leaver's own entries get
	// invalidated too.
	participantIDs, err := s.ActiveParticipantIDs(roomID)
	if err != nil {
		return false, apperr.Wrap(err, apperr.Internal, "failed to load participants")
	}

	archived, err := s.store.LeaveRoom(roomID, userID)
	if errors.Is(err, storage.ErrNoActiveParticipant) {
		return false, apperr.New(apperr.Forbidden, "not an active participant of this room")
	}
	if err != nil {
		return false, apperr.Wrap(err, apperr.Internal, "failed to leave room")
	}

	s.caches.InvalidateRoomWrite(roomID, participantIDs)
	if archived {
		s.log.Infow("room archived after last participant left", "room_id", roomID)
	}
	return archived, nil
}
