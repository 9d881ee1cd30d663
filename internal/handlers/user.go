package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"room-service/internal/middleware"
	"room-service/internal/repositories"
)

// UserHandler serves per-user queries: unread aggregation and push-token
// registration.
type UserHandler struct {
	messages repositories.MessageRepository
	presence repositories.PresenceRepository
	logger   *zap.Logger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(messages repositories.MessageRepository, presence repositories.PresenceRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{messages: messages, presence: presence, logger: logger}
}

// GetUnreadSummary scans every room the caller belongs to for messages they
// have not read and did not send. Computed on demand, never pushed.
func (h *UserHandler) GetUnreadSummary(c *gin.Context) {
	user := c.GetString(middleware.UserContextKey)

	summary, err := h.messages.UnreadSummary(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread messages"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RegisterPushToken stores the caller's push delivery token.
func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	user := c.GetString(middleware.UserContextKey)

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.presence.SetPushToken(c.Request.Context(), user, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}
