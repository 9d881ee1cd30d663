package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo is the ephemeral binding of one live websocket connection to a
// (user, room) pair. Created on join, dropped on disconnect, never persisted.
type ConnInfo struct {
	ConnID      string
	User        string
	RoomID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
