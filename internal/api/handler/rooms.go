package handler

import (
	"net/http"

	"linkup/backend/internal/apperr"
	"linkup/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	CounterpartID string `json:"counterpart_id" binding:"required"`
}

// CreateOrGetRoom opens (or returns) the room backed by the accepted
// connection between the caller and the counterpart.
// POST /api/rooms
func (h *Handler) CreateOrGetRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.New(apperr.InvalidInput, "counterpart_id is required"))
		return
	}

	room, err := h.Rooms.CreateOrGetRoom(currentUser(c), req.CounterpartID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// ListRooms returns the caller's active rooms with counterpart, last message
// and unread count.
// GET /api/rooms
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.ListRooms(currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoomDetail returns one room with participants, last message and the
// caller's unread count.
// GET /api/rooms/:id
func (h *Handler) GetRoomDetail(c *gin.Context) {
	detail, err := h.Rooms.GetRoomDetail(c.Param("id"), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// LeaveRoom soft-leaves the room, archiving it when the caller was the last
// active participant. The user_left envelope notifies the counterpart and lets
// every hub prune the leaver from its connection index.
// POST /api/rooms/:id/leave
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID := c.Param("id")
	userID := currentUser(c)

	archived, err := h.Rooms.LeaveRoom(roomID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.broadcast(models.RoomBroadcast{
		RoomID:        roomID,
		ExcludeUserID: userID,
		Payload: models.ServerEvent{
			Event:  models.EventUserLeft,
			RoomID: roomID,
			Data:   map[string]any{"user_id": userID},
		},
	})

	c.JSON(http.StatusOK, gin.H{"left": true, "archived": archived})
}
