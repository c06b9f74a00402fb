// Package chat implements the domain rules of the chat subsystem: room
// lifecycle, message storage with cursor pagination, and read tracking. The
// services sit between the transport layers (REST handlers, ws hub) and the
// storage/cache layers.
package chat

// MembershipChecker answers whether a user is an active participant of a room.
// Implemented by RoomService with a cache in front; the authoritative check is
// always the store on a cache miss.
type MembershipChecker interface {
	IsActiveParticipant(roomID, userID string) (bool, error)
}
