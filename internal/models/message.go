package models

import "time"

// Message is one entry in a room's ordered message log. Body and Attachment
// are both optional on the wire, but at least one must be present; that is
// enforced at the boundary before a message enters the mutation protocol.
// Reactions and ReadBy live in side tables and are stitched in on load.
type Message struct {
	ID         string    `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	Sender     string    `db:"sender" json:"sender"`
	Body       string    `db:"body" json:"body,omitempty"`
	Attachment string    `db:"attachment" json:"attachment,omitempty"`
	ReplyTo    string    `db:"reply_to" json:"reply_to,omitempty"`
	Edited     bool      `db:"edited" json:"edited"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Reactions map[string]int `db:"-" json:"reactions,omitempty"`
	ReadBy    []string       `db:"-" json:"read_by"`
	// IsRelated is resolved per viewer during the join-time history replay.
	IsRelated bool `db:"-" json:"is_related"`
}

// Preview returns the short text used for unread summaries and push
// notifications.
func (m Message) Preview() string {
	if m.Body != "" {
		return m.Body
	}
	if m.Attachment != "" {
		return "Image message"
	}
	return ""
}

// UnreadPreview is one unread message inside an unread summary.
type UnreadPreview struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// UnreadRoomSummary aggregates unread state for a single room.
type UnreadRoomSummary struct {
	UnreadCount int             `json:"unread_count"`
	Messages    []UnreadPreview `json:"messages"`
}
