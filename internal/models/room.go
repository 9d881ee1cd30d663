package models

import "time"

// Room is a named chat channel with durable membership and an ordered
// message log. The id is a short invite code, immutable after creation.
type Room struct {
	ID        string    `db:"id" json:"room_id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RoomInvite is a pending invitation of a user into a room.
type RoomInvite struct {
	RoomID    string    `db:"room_id" json:"room_id"`
	UserID    string    `db:"user_id" json:"user"`
	InvitedBy string    `db:"invited_by" json:"invited_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
