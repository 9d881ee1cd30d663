package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"room-service/internal/models"
)

// PresenceRepository tracks ephemeral connection state and push delivery
// tokens. Presence is derived from connect/disconnect events and is distinct
// from durable room membership.
type PresenceRepository interface {
	SetOnline(ctx context.Context, user string, roomID string) error
	SetOffline(ctx context.Context, user string) error
	ClearRoom(ctx context.Context, user string, roomID string) error
	RoomPresence(ctx context.Context, roomID string) ([]models.MemberPresence, error)
	SetPushToken(ctx context.Context, user string, token string) error
	OfflineTargets(ctx context.Context, roomID string, excludeUser string) ([]models.PushTarget, error)
}

// PresenceRepo is a sqlx implementation of PresenceRepository.
type PresenceRepo struct {
	db *sqlx.DB
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db *sqlx.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

// SetOnline marks the user online with the given room as their active room.
func (r *PresenceRepo) SetOnline(ctx context.Context, user string, roomID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presence (user_id, online, current_room, updated_at) VALUES ($1, TRUE, $2, NOW())
         ON CONFLICT (user_id) DO UPDATE SET online=TRUE, current_room=$2, updated_at=NOW()`,
		user, roomID)
	return err
}

// SetOffline marks the user offline and clears their active room.
func (r *PresenceRepo) SetOffline(ctx context.Context, user string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO presence (user_id, online, current_room, updated_at) VALUES ($1, FALSE, NULL, NOW())
         ON CONFLICT (user_id) DO UPDATE SET online=FALSE, current_room=NULL, updated_at=NOW()`,
		user)
	return err
}

// ClearRoom drops the user's active-room pointer, but only while it still
// points at the given room. A user who has since moved on is left alone.
func (r *PresenceRepo) ClearRoom(ctx context.Context, user string, roomID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE presence SET current_room=NULL, updated_at=NOW() WHERE user_id=$1 AND current_room=$2`,
		user, roomID)
	return err
}

// RoomPresence returns the durable member set of a room joined with each
// member's online state. Members with no presence row yet read as offline.
func (r *PresenceRepo) RoomPresence(ctx context.Context, roomID string) ([]models.MemberPresence, error) {
	var members []models.MemberPresence
	err := r.db.SelectContext(ctx, &members,
		`SELECT rm.user_id, COALESCE(p.online, FALSE) AS online FROM room_members rm
         LEFT JOIN presence p ON p.user_id = rm.user_id
         WHERE rm.room_id=$1 ORDER BY rm.joined_at ASC`, roomID)
	return members, err
}

// SetPushToken registers or replaces the user's push delivery token.
func (r *PresenceRepo) SetPushToken(ctx context.Context, user string, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO push_tokens (user_id, token, updated_at) VALUES ($1, $2, NOW())
         ON CONFLICT (user_id) DO UPDATE SET token=$2, updated_at=NOW()`,
		user, token)
	return err
}

// OfflineTargets returns room members, excluding one user, who are currently
// offline and hold a registered push token.
func (r *PresenceRepo) OfflineTargets(ctx context.Context, roomID string, excludeUser string) ([]models.PushTarget, error) {
	var targets []models.PushTarget
	err := r.db.SelectContext(ctx, &targets,
		`SELECT rm.user_id, pt.token FROM room_members rm
         INNER JOIN push_tokens pt ON pt.user_id = rm.user_id
         LEFT JOIN presence p ON p.user_id = rm.user_id
         WHERE rm.room_id=$1 AND rm.user_id<>$2 AND COALESCE(p.online, FALSE) = FALSE`,
		roomID, excludeUser)
	return targets, err
}
