package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"room-service/internal/models"
	"room-service/internal/observability"
	"room-service/internal/repositories"
)

// PushSink is the external push-delivery boundary. The engine decides who to
// notify; delivery itself (and any retries) is the sink consumer's problem.
type PushSink interface {
	Push(ctx context.Context, token string, title string, body string) error
}

// Notifier computes push eligibility for newly appended messages: room
// members other than the sender who are presence-offline and hold a
// registered delivery token.
type Notifier struct {
	presence repositories.PresenceRepository
	sink     PushSink
	logger   *zap.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(presence repositories.PresenceRepository, sink PushSink, logger *zap.Logger) *Notifier {
	return &Notifier{presence: presence, sink: sink, logger: logger}
}

// MessageAppended hands the message off to the push sink for every eligible
// member. A failed handoff for one recipient never blocks the others and is
// never surfaced to the sender.
func (n *Notifier) MessageAppended(ctx context.Context, msg models.Message) {
	targets, err := n.presence.OfflineTargets(ctx, msg.RoomID, msg.Sender)
	if err != nil {
		n.logger.Error("push eligibility lookup failed",
			zap.String("room_id", msg.RoomID), zap.Error(err))
		return
	}

	title := fmt.Sprintf("New message from %s", msg.Sender)
	for _, target := range targets {
		if err := n.sink.Push(ctx, target.Token, title, msg.Preview()); err != nil {
			observability.IncPushHandoff("error")
			n.logger.Warn("push handoff failed",
				zap.String("room_id", msg.RoomID),
				zap.String("user", target.User),
				zap.Error(err))
			continue
		}
		observability.IncPushHandoff("ok")
	}
}
