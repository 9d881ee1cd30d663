package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"room-service/internal/middleware"
	"room-service/internal/relationship"
	"room-service/internal/repositories"
)

// InviteHandler manages room invitations. Only related users may be invited.
type InviteHandler struct {
	invites   repositories.InviteRepository
	rooms     repositories.RoomRepository
	relations relationship.Client
	logger    *zap.Logger
}

// NewInviteHandler builds an InviteHandler.
func NewInviteHandler(
	invites repositories.InviteRepository,
	rooms repositories.RoomRepository,
	relations relationship.Client,
	logger *zap.Logger,
) *InviteHandler {
	return &InviteHandler{invites: invites, rooms: rooms, relations: relations, logger: logger}
}

// CreateInvite invites a related user into a room the caller belongs to.
// Re-inviting someone with a pending invite is a no-op.
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	var req struct {
		User string `json:"user" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.rooms.IsMember(c.Request.Context(), roomID, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	related, err := h.relations.Related(c.Request.Context(), user, req.User)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate relationship"})
		return
	}
	if !related {
		c.JSON(http.StatusForbidden, gin.H{"error": "can only invite related users"})
		return
	}

	created, err := h.invites.Invite(c.Request.Context(), roomID, req.User, user)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not create invite"})
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"status": "already invited"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room_id": roomID, "user": req.User})
}

// ListInvites returns the caller's pending invites.
func (h *InviteHandler) ListInvites(c *gin.Context) {
	user := c.GetString(middleware.UserContextKey)

	invites, err := h.invites.ListForUser(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// AcceptInvite consumes a pending invite and joins the caller to the room.
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	found, err := h.invites.Remove(c.Request.Context(), roomID, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept invite"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found"})
		return
	}

	if err := h.rooms.JoinRoom(c.Request.Context(), roomID, user); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			// The room was deleted while the invite was pending.
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not join room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": roomID})
}

// DeclineInvite drops a pending invite.
func (h *InviteHandler) DeclineInvite(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	found, err := h.invites.Remove(c.Request.Context(), roomID, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decline invite"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
