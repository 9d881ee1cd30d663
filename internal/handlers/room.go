package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"room-service/internal/middleware"
	"room-service/internal/models"
	"room-service/internal/repositories"
	"room-service/internal/ws"
)

// RoomHandler manages the room lifecycle endpoints.
type RoomHandler struct {
	rooms     repositories.RoomRepository
	presence  repositories.PresenceRepository
	hub       *ws.Hub
	presences *ws.PresenceBroadcaster
	logger    *zap.Logger
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(
	rooms repositories.RoomRepository,
	presence repositories.PresenceRepository,
	hub *ws.Hub,
	presences *ws.PresenceBroadcaster,
	logger *zap.Logger,
) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		presence:  presence,
		hub:       hub,
		presences: presences,
		logger:    logger,
	}
}

// CreateRoom creates a room owned by the caller.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	user := c.GetString(middleware.UserContextKey)

	room, err := h.rooms.CreateRoom(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms returns the rooms the caller belongs to.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	user := c.GetString(middleware.UserContextKey)

	rooms, err := h.rooms.ListRoomsForUser(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom returns room metadata plus its member/presence list with
// relationship flags resolved against the caller.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	members, err := h.presences.Snapshot(c.Request.Context(), roomID, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "members": members})
}

// JoinRoom adds the caller to the room's durable member set. Rejoining is
// a no-op, not an error.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	if err := h.rooms.JoinRoom(c.Request.Context(), roomID, user); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not join room"})
		return
	}

	h.presences.Broadcast(c.Request.Context(), roomID, user)
	c.JSON(http.StatusOK, gin.H{"room_id": roomID})
}

// LeaveRoom removes the caller from the member set. Owners must delete the
// room instead of leaving it.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	if err := h.rooms.LeaveRoom(c.Request.Context(), roomID, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, repositories.ErrOwnerCannotLeave):
			c.JSON(http.StatusForbidden, gin.H{"error": "room owner must delete the room instead"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave room"})
		}
		return
	}

	if err := h.presence.ClearRoom(c.Request.Context(), user, roomID); err != nil {
		h.logger.Warn("presence clear failed on leave",
			zap.String("user", user), zap.String("room_id", roomID), zap.Error(err))
	}

	h.presences.Broadcast(c.Request.Context(), roomID, user)
	c.Status(http.StatusNoContent)
}

// DeleteRoom destroys a room (owner only). Ownership is checked before any
// cleanup so a rejected delete leaves no trace. Member cleanup is two-phase
// and best-effort: every member's active-room pointer is cleared before the
// room record goes away, and individual cleanup failures never abort the
// delete.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	user := c.GetString(middleware.UserContextKey)

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	if room.CreatedBy != user {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room owner can delete it"})
		return
	}

	members, err := h.rooms.Members(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		return
	}
	for _, member := range members {
		if err := h.presence.ClearRoom(c.Request.Context(), member, roomID); err != nil {
			h.logger.Warn("presence cleanup failed during room delete",
				zap.String("user", member), zap.String("room_id", roomID), zap.Error(err))
		}
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), roomID, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		case errors.Is(err, repositories.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the room owner can delete it"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete room"})
		}
		return
	}

	h.hub.BroadcastToRoom(roomID, models.RoomEvent{
		Type:   models.EventRoomDeleted,
		RoomID: roomID,
	})
	h.hub.CloseRoom(roomID)

	c.Status(http.StatusNoContent)
}
