// Package handler exposes the chat subsystem over HTTP: the synchronous
// request/response operations plus the WebSocket upgrade. Handlers translate
// typed domain errors into response payloads; internals never reach clients.
package handler

import (
	"linkup/backend/internal/apperr"
	"linkup/backend/internal/chat"
	"linkup/backend/internal/chathub"
	"linkup/backend/internal/identity"
	"linkup/backend/internal/platform"
	"linkup/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Hub      *chathub.Manager
	Rooms    *chat.RoomService
	Messages *chat.MessageService
	Reads    *chat.ReadTracker
	Files    platform.Files
	Store    storage.Storage
	Verifier identity.Verifier
	Log      *zap.SugaredLogger
}

func NewHandler(
	hub *chathub.Manager,
	rooms *chat.RoomService,
	messages *chat.MessageService,
	reads *chat.ReadTracker,
	files platform.Files,
	store storage.Storage,
	verifier identity.Verifier,
	log *zap.SugaredLogger,
) *Handler {
	return &Handler{
		Hub:      hub,
		Rooms:    rooms,
		Messages: messages,
		Reads:    reads,
		Files:    files,
		Store:    store,
		Verifier: verifier,
		Log:      log,
	}
}

// Register wires all chat routes onto the engine.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api", h.Authenticate)
	{
		api.POST("/rooms", h.CreateOrGetRoom)
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoomDetail)
		api.POST("/rooms/:id/leave", h.LeaveRoom)
		api.GET("/rooms/:id/messages", h.PageMessages)
		api.POST("/rooms/:id/messages", h.SendMessage)
		api.GET("/rooms/:id/unread", h.UnreadCount)
		api.POST("/rooms/:id/read", h.MarkAllRead)
		api.GET("/rooms/:id/first-unread", h.FirstUnread)
		api.PATCH("/messages/:id", h.EditMessage)
		api.DELETE("/messages/:id", h.DeleteMessage)
		api.POST("/uploads", h.Upload)
	}
	r.GET("/ws", h.ServeWebSocket)
}

// fail writes the typed failure payload for err. Unexpected errors are logged
// and surfaced as a generic internal failure.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	if status == apperr.Internal {
		h.Log.Errorw("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(apperr.HTTPStatus(status), gin.H{
		"status": string(status),
		"error":  apperr.MessageOf(err),
	})
}
