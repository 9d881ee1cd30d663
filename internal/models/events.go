package models

// Event types broadcast over room websockets.
const (
	EventPresenceUpdate  = "presence_update"
	EventHistory         = "history"
	EventMessageAppended = "message_appended"
	EventMessageEdited   = "message_edited"
	EventMessageDeleted  = "message_deleted"
	EventReactionUpdated = "reaction_updated"
	EventReadReceipt     = "read_receipt"
	EventTyping          = "typing"
	EventRoomDeleted     = "room_deleted"
	// EventError is sent unicast to the acting connection when a mutation
	// fails against the store. Predicate no-ops never produce it.
	EventError = "error"
)

// RoomEvent is the single outbound wire envelope for room websockets. Only
// the fields relevant to Type are populated; everything else is omitted.
type RoomEvent struct {
	Type       string           `json:"type"`
	RoomID     string           `json:"room_id,omitempty"`
	Message    *Message         `json:"message,omitempty"`
	Messages   []Message        `json:"messages,omitempty"`
	Members    []MemberPresence `json:"members,omitempty"`
	MessageID  string           `json:"message_id,omitempty"`
	MessageIDs []string         `json:"message_ids,omitempty"`
	NewBody    string           `json:"new_body,omitempty"`
	Reactions  map[string]int   `json:"reactions,omitempty"`
	Reader     string           `json:"reader,omitempty"`
	User       string           `json:"user,omitempty"`
	IsTyping   bool             `json:"is_typing,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}
