package models

// Client-to-server event names.
const (
	EventRoomJoin    = "room:join"
	EventRoomLeave   = "room:leave"
	EventMessageSend = "message:send"
)

// Server-to-client event names. Ack events answer the caller; the rest are
// broadcast to other room members.
const (
	EventConnected    = "connect"
	EventRoomJoined   = "room:joined"
	EventRoomLeft     = "room:left"
	EventUserJoined   = "user_joined"
	EventUserLeft     = "user_left"
	EventMessageSaved = "message:saved"
	EventNewMessage   = "new_message"
	EventMessageRead  = "message:read"
	EventMessageError = "message:error"
	EventError        = "error"
)

// ClientEvent is the decoded form of an inbound WebSocket frame.
type ClientEvent struct {
	Event  string `json:"event"`
	RoomID string `json:"room_id"`

	// message:send fields
	Type     string  `json:"type,omitempty"`
	Text     *string `json:"text,omitempty"`
	FileURL  *string `json:"file_url,omitempty"`
	FileName *string `json:"file_name,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`
}

// ServerEvent is an outbound frame: an acknowledgement or a broadcast.
type ServerEvent struct {
	Event  string `json:"event"`
	RoomID string `json:"room_id,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RoomBroadcast is the envelope published on the room's pub/sub channel. The
// hub relays Payload to every local member of RoomID except ExcludeUserID.
type RoomBroadcast struct {
	RoomID        string      `json:"room_id"`
	ExcludeUserID string      `json:"exclude_user_id,omitempty"`
	Payload       ServerEvent `json:"payload"`
}

// ReadReceipt is the data of a message:read notification.
type ReadReceipt struct {
	RoomID            string `json:"room_id"`
	ReaderID          string `json:"reader_id"`
	LastReadMessageID uint   `json:"last_read_message_id"`
}
