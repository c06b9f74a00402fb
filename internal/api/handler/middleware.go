package handler

import (
	"strings"

	"linkup/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// bearerToken extracts the credential from the Authorization header, falling
// back to the token query parameter for WebSocket upgrades where browsers
// cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Authenticate verifies the bearer credential and stores the user id on the
// request context. It aborts with the typed failure payload on any miss.
func (h *Handler) Authenticate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		h.abortAuth(c, apperr.New(apperr.Unauthenticated, "missing bearer credential"))
		return
	}

	userID, err := h.Verifier.Verify(token)
	if err != nil {
		h.abortAuth(c, err)
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

func (h *Handler) abortAuth(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(status), gin.H{
		"status": string(status),
		"error":  apperr.MessageOf(err),
	})
}

// currentUser returns the verified user id set by Authenticate.
func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
