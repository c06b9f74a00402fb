package handler

import (
	"net/http"
	"strconv"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func messageID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.InvalidInput, "invalid message id")
	}
	return uint(id), nil
}

// SendMessage appends a message over the request/response surface. The
// broadcast is published only after the write and its cache invalidation have
// completed.
// POST /api/rooms/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	roomID := c.Param("id")
	userID := currentUser(c)

	var in models.MessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.New(apperr.InvalidInput, "invalid message payload"))
		return
	}

	msg, err := h.Messages.Send(roomID, userID, in)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.broadcast(models.RoomBroadcast{
		RoomID:        roomID,
		ExcludeUserID: userID,
		Payload: models.ServerEvent{
			Event:  models.EventNewMessage,
			RoomID: roomID,
			Data:   msg,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// PageMessages returns one cursor page of the room's history.
// GET /api/rooms/:id/messages?limit=50&cursor=123&direction=before
func (h *Handler) PageMessages(c *gin.Context) {
	roomID := c.Param("id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	cursor, _ := strconv.ParseUint(c.DefaultQuery("cursor", "0"), 10, 64)
	direction := c.DefaultQuery("direction", "before")

	// Mirror the service's default and clamp so has_more compares against the
	// limit actually applied, not the raw query value.
	if limit <= 0 {
		limit = chat.DefaultPageSize
	}
	if limit > chat.MaxPageSize {
		limit = chat.MaxPageSize
	}

	msgs, err := h.Messages.Page(roomID, currentUser(c), limit, uint(cursor), direction)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{"messages": msgs, "has_more": len(msgs) == limit}
	if len(msgs) > 0 {
		resp["next_cursor"] = msgs[len(msgs)-1].ID
	}
	c.JSON(http.StatusOK, resp)
}

type editMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// EditMessage rewrites the caller's own text message.
// PATCH /api/messages/:id
func (h *Handler) EditMessage(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.New(apperr.InvalidInput, "text is required"))
		return
	}

	msg, err := h.Messages.Edit(id, currentUser(c), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage soft-deletes the caller's own message.
// DELETE /api/messages/:id
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	msg, err := h.Messages.SoftDelete(id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// UnreadCount returns how many messages the caller has not read in the room.
// GET /api/rooms/:id/unread
func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.Reads.UnreadCount(c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkAllRead advances the caller's read pointer and notifies the counterpart
// when anything became read.
// POST /api/rooms/:id/read
func (h *Handler) MarkAllRead(c *gin.Context) {
	roomID := c.Param("id")
	userID := currentUser(c)

	becameRead, lastReadID, err := h.Reads.MarkAllRead(roomID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	if becameRead > 0 {
		h.broadcast(models.RoomBroadcast{
			RoomID:        roomID,
			ExcludeUserID: userID,
			Payload: models.ServerEvent{
				Event:  models.EventMessageRead,
				RoomID: roomID,
				Data:   models.ReadReceipt{RoomID: roomID, ReaderID: userID, LastReadMessageID: lastReadID},
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"became_read": becameRead, "last_read_message_id": lastReadID})
}

// FirstUnread returns the oldest unread message id so clients can jump to it.
// GET /api/rooms/:id/first-unread
func (h *Handler) FirstUnread(c *gin.Context) {
	id, err := h.Reads.FirstUnreadID(c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"first_unread_id": id})
}

// Upload hands a binary to the file intake collaborator and returns the
// descriptor to attach to a message:send.
// POST /api/uploads
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.fail(c, apperr.New(apperr.InvalidInput, "file form field is required"))
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, apperr.Wrap(err, apperr.Internal, "failed to read upload"))
		return
	}
	defer src.Close()

	desc, err := h.Files.Store(file.Filename, src)
	if err != nil {
		h.fail(c, apperr.Wrap(err, apperr.Internal, "failed to store upload"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file": desc})
}

// broadcast publishes best-effort; REST responses never fail because a notice
// could not be delivered.
func (h *Handler) broadcast(b models.RoomBroadcast) {
	if err := h.Store.PublishRoomEvent(b); err != nil {
		h.Log.Warnw("broadcast publish failed", "room_id", b.RoomID, "event", b.Payload.Event, "err", err)
	}
}
