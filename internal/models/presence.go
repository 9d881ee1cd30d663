package models

// MemberPresence is one row of a room's presence snapshot: a durable member
// plus their ephemeral online state. Membership survives disconnects, so
// offline members still appear here with Online=false.
type MemberPresence struct {
	User      string `db:"user_id" json:"user"`
	Online    bool   `db:"online" json:"online"`
	IsRelated bool   `db:"-" json:"is_related"`
}

// PushTarget is a member eligible for external push delivery.
type PushTarget struct {
	User  string `db:"user_id"`
	Token string `db:"token"`
}
