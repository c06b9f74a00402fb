package models

// MessageInput is the content of a send request, shared by the REST route and
// the message:send event.
type MessageInput struct {
	Type     string  `json:"type"`
	Text     *string `json:"text,omitempty"`
	FileURL  *string `json:"file_url,omitempty"`
	FileName *string `json:"file_name,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`
}

// HasText reports whether the input carries non-empty text.
func (in *MessageInput) HasText() bool { return in.Text != nil && *in.Text != "" }

// HasFile reports whether the input carries a file descriptor.
func (in *MessageInput) HasFile() bool { return in.FileURL != nil && *in.FileURL != "" }

// RoomSummary is one row of a user's room list.
type RoomSummary struct {
	Room        ChatRoom        `json:"room"`
	Counterpart *ProfileSummary `json:"counterpart,omitempty"`
	LastMessage *Message        `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
}

// RoomDetail is the full view of a single room for one requesting user.
type RoomDetail struct {
	Room         ChatRoom         `json:"room"`
	Participants []ProfileSummary `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	UnreadCount  int64            `json:"unread_count"`
}

// FileDescriptor is what the file intake collaborator returns for an upload.
type FileDescriptor struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}
