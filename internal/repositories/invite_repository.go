package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"room-service/internal/models"
)

// InviteRepository stores pending room invitations. An invite is deduped per
// (room, user); re-inviting someone with a pending invite is a no-op.
type InviteRepository interface {
	Invite(ctx context.Context, roomID string, user string, invitedBy string) (bool, error)
	ListForUser(ctx context.Context, user string) ([]models.RoomInvite, error)
	Remove(ctx context.Context, roomID string, user string) (bool, error)
}

// InviteRepo is a sqlx implementation of InviteRepository.
type InviteRepo struct {
	db *sqlx.DB
}

// NewInviteRepo constructs an InviteRepo.
func NewInviteRepo(db *sqlx.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

// Invite records a pending invitation, guarded by room existence. Returns
// whether a new invite was created.
func (r *InviteRepo) Invite(ctx context.Context, roomID string, user string, invitedBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO room_invites (room_id, user_id, invited_by)
         SELECT id, $2, $3 FROM rooms WHERE id=$1
         ON CONFLICT (room_id, user_id) DO NOTHING`,
		roomID, user, invitedBy)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM rooms WHERE id=$1)`, roomID); err != nil {
			return false, err
		}
		if !exists {
			return false, ErrRoomNotFound
		}
		return false, nil
	}
	return true, nil
}

// ListForUser returns the user's pending invites, newest first.
func (r *InviteRepo) ListForUser(ctx context.Context, user string) ([]models.RoomInvite, error) {
	var invites []models.RoomInvite
	err := r.db.SelectContext(ctx, &invites,
		`SELECT room_id, user_id, invited_by, created_at FROM room_invites
         WHERE user_id=$1 ORDER BY created_at DESC`, user)
	return invites, err
}

// Remove deletes a pending invite, reporting whether one existed. Used for
// both accept (followed by a join) and decline.
func (r *InviteRepo) Remove(ctx context.Context, roomID string, user string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM room_invites WHERE room_id=$1 AND user_id=$2`, roomID, user)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
