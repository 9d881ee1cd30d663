package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"room-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// AppendParams carries a validated message into the log. ID is assigned by
// the caller so the append stays idempotent from the session's perspective.
type AppendParams struct {
	ID         string
	Sender     string
	Body       string
	Attachment string
	ReplyTo    string
}

// MessageRepository is the message-log mutation protocol. Every mutation is a
// conditional write: the statement names the full precondition it depends on
// and reports back whether it took effect, so racing writers linearize in the
// store and a failed predicate is a safe no-op.
type MessageRepository interface {
	Append(ctx context.Context, roomID string, params AppendParams) (models.Message, bool, error)
	Edit(ctx context.Context, roomID string, messageID string, requester string, newBody string) (bool, error)
	Delete(ctx context.Context, roomID string, messageID string, requester string) (bool, error)
	React(ctx context.Context, roomID string, messageID string, symbol string) (map[string]int, bool, error)
	MarkRead(ctx context.Context, roomID string, reader string, messageIDs []string) ([]string, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Message, error)
	UnreadSummary(ctx context.Context, user string) (map[string]models.UnreadRoomSummary, error)
}

// MessageRepo is a sqlx-backed implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append inserts the message and seeds read_by with the sender. The insert is
// guarded by room existence; a vanished room makes Append report appended=false
// with no error, matching the silent-drop semantics of the protocol.
func (r *MessageRepo) Append(ctx context.Context, roomID string, params AppendParams) (models.Message, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (id, room_id, sender, body, attachment, reply_to)
         SELECT $1, id, $3, $4, $5, $6 FROM rooms WHERE id=$2
         RETURNING id, room_id, sender, body, attachment, reply_to, edited, created_at`,
		params.ID, roomID, params.Sender, params.Body, params.Attachment, params.ReplyTo).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		tx.Rollback()
		return models.Message{}, false, nil
	}
	if err != nil {
		return models.Message{}, false, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		msg.ID, params.Sender); err != nil {
		return models.Message{}, false, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, false, err
	}

	msg.ReadBy = []string{params.Sender}
	return msg, true, nil
}

// Edit replaces the body and sets the edited flag, but only when the message
// still exists in the room and the requester is its sender.
func (r *MessageRepo) Edit(ctx context.Context, roomID string, messageID string, requester string, newBody string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET body=$1, edited=TRUE WHERE id=$2 AND room_id=$3 AND sender=$4`,
		newBody, messageID, roomID, requester)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the message from the log (sender only). Reactions and read
// receipts cascade.
func (r *MessageRepo) Delete(ctx context.Context, roomID string, messageID string, requester string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id=$1 AND room_id=$2 AND sender=$3`,
		messageID, roomID, requester)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// React increments the named reaction counter by one, guarded by the message
// existing in the room. The increment is store-native, so concurrent calls
// both land. Returns the post-mutation reaction map for the message.
func (r *MessageRepo) React(ctx context.Context, roomID string, messageID string, symbol string) (map[string]int, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reactions (message_id, symbol, count)
         SELECT m.id, $2, 1 FROM messages m WHERE m.id=$1 AND m.room_id=$3
         ON CONFLICT (message_id, symbol) DO UPDATE SET count = message_reactions.count + 1`,
		messageID, symbol, roomID)
	if err != nil {
		return nil, false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if count == 0 {
		return nil, false, nil
	}

	reactions, err := r.reactionsFor(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return reactions, true, nil
}

// MarkRead adds the reader to read_by for every message of the batch that
// exists in the room and is not already read by them. Already-read entries
// are skipped by the conflict clause, making a replayed batch idempotent.
// Returns the ids that actually changed.
func (r *MessageRepo) MarkRead(ctx context.Context, roomID string, reader string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryxContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT m.id, $3 FROM messages m WHERE m.room_id=$2 AND m.id = ANY($1)
         ON CONFLICT DO NOTHING
         RETURNING message_id`,
		pq.Array(messageIDs), roomID, reader)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marked []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		marked = append(marked, id)
	}
	return marked, rows.Err()
}

// ListByRoom returns the full message log in send order, with reactions and
// read receipts stitched in.
func (r *MessageRepo) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, room_id, sender, body, attachment, reply_to, edited, created_at
         FROM messages WHERE room_id=$1 ORDER BY created_at ASC, id ASC`, roomID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	byID := make(map[string]*models.Message, len(msgs))
	for i := range msgs {
		msgs[i].ReadBy = []string{}
		byID[msgs[i].ID] = &msgs[i]
	}

	reactionRows, err := r.db.QueryxContext(ctx,
		`SELECT mr.message_id, mr.symbol, mr.count FROM message_reactions mr
         INNER JOIN messages m ON m.id = mr.message_id WHERE m.room_id=$1`, roomID)
	if err != nil {
		return nil, err
	}
	defer reactionRows.Close()
	for reactionRows.Next() {
		var messageID, symbol string
		var count int
		if err := reactionRows.Scan(&messageID, &symbol, &count); err != nil {
			return nil, err
		}
		if msg, ok := byID[messageID]; ok {
			if msg.Reactions == nil {
				msg.Reactions = make(map[string]int)
			}
			msg.Reactions[symbol] = count
		}
	}
	if err := reactionRows.Err(); err != nil {
		return nil, err
	}

	readRows, err := r.db.QueryxContext(ctx,
		`SELECT mr.message_id, mr.user_id FROM message_reads mr
         INNER JOIN messages m ON m.id = mr.message_id WHERE m.room_id=$1
         ORDER BY mr.read_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer readRows.Close()
	for readRows.Next() {
		var messageID, user string
		if err := readRows.Scan(&messageID, &user); err != nil {
			return nil, err
		}
		if msg, ok := byID[messageID]; ok {
			msg.ReadBy = append(msg.ReadBy, user)
		}
	}
	return msgs, readRows.Err()
}

// UnreadSummary scans every room the user belongs to for messages they have
// not acknowledged and did not send, grouped per room.
func (r *MessageRepo) UnreadSummary(ctx context.Context, user string) (map[string]models.UnreadRoomSummary, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT m.room_id, m.id, m.sender, m.body, m.attachment FROM messages m
         INNER JOIN room_members rm ON rm.room_id = m.room_id AND rm.user_id=$1
         WHERE m.sender<>$1
           AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id=$1)
         ORDER BY m.room_id, m.created_at ASC`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := make(map[string]models.UnreadRoomSummary)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.RoomID, &msg.ID, &msg.Sender, &msg.Body, &msg.Attachment); err != nil {
			return nil, err
		}
		entry := summary[msg.RoomID]
		entry.UnreadCount++
		entry.Messages = append(entry.Messages, models.UnreadPreview{
			ID:      msg.ID,
			Sender:  msg.Sender,
			Content: msg.Preview(),
		})
		summary[msg.RoomID] = entry
	}
	return summary, rows.Err()
}

func (r *MessageRepo) reactionsFor(ctx context.Context, messageID string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT symbol, count FROM message_reactions WHERE message_id=$1`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := make(map[string]int)
	for rows.Next() {
		var symbol string
		var count int
		if err := rows.Scan(&symbol, &count); err != nil {
			return nil, err
		}
		reactions[symbol] = count
	}
	return reactions, rows.Err()
}
