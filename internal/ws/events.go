package ws

// Inbound event types accepted on a room websocket.
const (
	inboundSendMessage   = "send_message"
	inboundEditMessage   = "edit_message"
	inboundDeleteMessage = "delete_message"
	inboundAddReaction   = "add_reaction"
	inboundMarkRead      = "mark_read"
	inboundTyping        = "typing"
)

// InboundEvent is the single inbound wire envelope for room websockets.
// Fields are validated per type before entering the mutation protocol.
type InboundEvent struct {
	Type       string   `json:"type"`
	Body       string   `json:"body,omitempty"`
	Attachment string   `json:"attachment,omitempty"`
	ReplyTo    string   `json:"reply_to,omitempty"`
	MessageID  string   `json:"message_id,omitempty"`
	NewBody    string   `json:"new_body,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
	MessageIDs []string `json:"message_ids,omitempty"`
	IsTyping   bool     `json:"is_typing,omitempty"`
}
