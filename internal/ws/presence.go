package ws

import (
	"context"

	"go.uber.org/zap"

	"room-service/internal/models"
	"room-service/internal/relationship"
	"room-service/internal/repositories"
)

// PresenceBroadcaster builds a room's presence snapshot and fans it out.
// Relationship flags are resolved against the acting user, the one whose
// join/leave/disconnect triggered the update.
type PresenceBroadcaster struct {
	hub       *Hub
	presence  repositories.PresenceRepository
	relations relationship.Client
	logger    *zap.Logger
}

// NewPresenceBroadcaster constructs a PresenceBroadcaster.
func NewPresenceBroadcaster(hub *Hub, presence repositories.PresenceRepository, relations relationship.Client, logger *zap.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{hub: hub, presence: presence, relations: relations, logger: logger}
}

// Broadcast emits a presence_update to every connection in the room.
// Failures are logged and absorbed; presence updates are best-effort.
func (b *PresenceBroadcaster) Broadcast(ctx context.Context, roomID string, viewer string) {
	members, err := b.Snapshot(ctx, roomID, viewer)
	if err != nil {
		b.logger.Warn("presence snapshot failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	b.hub.BroadcastToRoom(roomID, models.RoomEvent{
		Type:    models.EventPresenceUpdate,
		RoomID:  roomID,
		Members: members,
	})
}

// Snapshot returns the room's member/presence list with relationship flags
// resolved against the viewer. A relationship-service outage degrades the
// flags to false rather than failing the snapshot.
func (b *PresenceBroadcaster) Snapshot(ctx context.Context, roomID string, viewer string) ([]models.MemberPresence, error) {
	members, err := b.presence.RoomPresence(ctx, roomID)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(members))
	for _, m := range members {
		if m.User != viewer {
			others = append(others, m.User)
		}
	}

	related, err := b.relations.BulkRelated(ctx, viewer, others)
	if err != nil {
		b.logger.Warn("relationship lookup failed", zap.String("viewer", viewer), zap.Error(err))
		related = map[string]bool{}
	}

	for i := range members {
		members[i].IsRelated = related[members[i].User]
	}
	return members, nil
}
