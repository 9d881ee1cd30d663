package repositories

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"room-service/internal/models"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrForbidden        = errors.New("operation not allowed")
	ErrOwnerCannotLeave = errors.New("room owner cannot leave own room")
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RoomRepository abstracts room and membership persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, owner string) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	JoinRoom(ctx context.Context, roomID string, user string) error
	LeaveRoom(ctx context.Context, roomID string, user string) error
	DeleteRoom(ctx context.Context, roomID string, requester string) error
	Members(ctx context.Context, roomID string) ([]string, error)
	IsMember(ctx context.Context, roomID string, user string) (bool, error)
	ListRoomsForUser(ctx context.Context, user string) ([]models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db         *sqlx.DB
	codeLength int
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB, codeLength int) *RoomRepo {
	if codeLength <= 0 {
		codeLength = 10
	}
	return &RoomRepo{db: db, codeLength: codeLength}
}

// CreateRoom inserts a room under a freshly drawn code and records the owner
// as its first member. Code collisions are resolved by redrawing; uniqueness
// is enforced by the primary key, not by a read-then-write check.
func (r *RoomRepo) CreateRoom(ctx context.Context, owner string) (models.Room, error) {
	for {
		code := randomRoomCode(r.codeLength)

		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return models.Room{}, err
		}

		var room models.Room
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO rooms (id, created_by) VALUES ($1, $2) RETURNING id, created_by, created_at`,
			code, owner).StructScan(&room)
		if err != nil {
			tx.Rollback()
			if isUniqueViolation(err) {
				continue
			}
			return models.Room{}, err
		}

		if _, err = tx.ExecContext(ctx,
			`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)`, code, owner); err != nil {
			tx.Rollback()
			return models.Room{}, err
		}

		if err = tx.Commit(); err != nil {
			return models.Room{}, err
		}
		return room, nil
	}
}

// GetRoom fetches a room by its code.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room,
		`SELECT id, created_by, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// JoinRoom adds the user to the room's member set. Rejoining is a no-op. The
// insert is guarded by room existence so a join racing a delete lands as
// ErrRoomNotFound rather than a dangling membership row.
func (r *RoomRepo) JoinRoom(ctx context.Context, roomID string, user string) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id)
         SELECT id, $2 FROM rooms WHERE id=$1
         ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, user)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		// Either the room is gone or the user was already a member.
		exists, err := r.roomExists(ctx, roomID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrRoomNotFound
		}
	}
	return nil
}

// LeaveRoom removes the user from the member set. Owners must delete instead.
func (r *RoomRepo) LeaveRoom(ctx context.Context, roomID string, user string) error {
	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy == user {
		return ErrOwnerCannotLeave
	}

	// The predicate re-checks ownership so a concurrent owner change (there
	// is none today, owners are immutable) can never slip an owner out.
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM room_members rm USING rooms ro
         WHERE rm.room_id=$1 AND rm.user_id=$2 AND ro.id=rm.room_id AND ro.created_by<>$2`,
		roomID, user)
	return err
}

// DeleteRoom destroys the room record. Only the creator may delete; the
// ownership predicate lives in the DELETE itself so two racing deleters
// cannot both observe success. Members and messages cascade.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID string, requester string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rooms WHERE id=$1 AND created_by=$2`, roomID, requester)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		exists, err := r.roomExists(ctx, roomID)
		if err != nil {
			return err
		}
		if exists {
			return ErrForbidden
		}
		return ErrRoomNotFound
	}
	return nil
}

// Members returns the durable member set of a room.
func (r *RoomRepo) Members(ctx context.Context, roomID string) ([]string, error) {
	var members []string
	err := r.db.SelectContext(ctx, &members,
		`SELECT user_id FROM room_members WHERE room_id=$1 ORDER BY joined_at ASC`, roomID)
	return members, err
}

// IsMember checks durable membership.
func (r *RoomRepo) IsMember(ctx context.Context, roomID string, user string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id=$1 AND user_id=$2)`, roomID, user)
	return exists, err
}

// ListRoomsForUser returns every room the user belongs to.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, user string) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT ro.id, ro.created_by, ro.created_at FROM rooms ro
         INNER JOIN room_members rm ON rm.room_id = ro.id
         WHERE rm.user_id=$1 ORDER BY ro.created_at DESC`, user)
	return rooms, err
}

func (r *RoomRepo) roomExists(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE id=$1)`, roomID)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func randomRoomCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		code[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}
