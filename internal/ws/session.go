package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"room-service/internal/middleware"
	"room-service/internal/models"
	"room-service/internal/notify"
	"room-service/internal/observability"
	"room-service/internal/relationship"
	"room-service/internal/repositories"
)

// SessionHandler upgrades room websocket connections and runs one session
// coordinator per connection.
type SessionHandler struct {
	hub       *Hub
	rooms     repositories.RoomRepository
	messages  repositories.MessageRepository
	presence  repositories.PresenceRepository
	relations relationship.Client
	notifier  *notify.Notifier
	verifier  *middleware.TokenVerifier
	presences *PresenceBroadcaster
	logger    *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(
	hub *Hub,
	rooms repositories.RoomRepository,
	messages repositories.MessageRepository,
	presence repositories.PresenceRepository,
	relations relationship.Client,
	notifier *notify.Notifier,
	verifier *middleware.TokenVerifier,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		hub:       hub,
		rooms:     rooms,
		messages:  messages,
		presence:  presence,
		relations: relations,
		notifier:  notifier,
		verifier:  verifier,
		presences: NewPresenceBroadcaster(hub, presence, relations, logger),
		logger:    logger,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the connection, ensures room membership and runs the
// join sequence before handing the connection to its read loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	ctx, span := otel.Tracer("room-service/ws").Start(c.Request.Context(), "ws.session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	user, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// Membership is durable and idempotent: connecting to a room you already
	// belong to is a no-op here.
	if err := h.rooms.JoinRoom(ctx, roomID, user); err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		User:        user,
		RoomID:      roomID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(roomID, conn, info)
	observability.IncWSActive()
	observability.IncWSEvent("connect")

	// Mutations submitted by this session must complete even if the
	// connection closes mid-operation, so the session context never carries
	// the request's cancellation.
	sess := &session{
		h:    h,
		conn: conn,
		info: info,
		ctx:  context.WithoutCancel(ctx),
	}
	sess.join()
	go sess.readLoop()
}

func (h *SessionHandler) validateToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid token")
	}
	return h.verifier.Verify(parts[1])
}

// Presences exposes the handler's presence broadcaster for the REST surface.
func (h *SessionHandler) Presences() *PresenceBroadcaster {
	return h.presences
}

// session is the per-connection coordinator: it owns the (user, room)
// binding and mediates every inbound event against the store before any
// fan-out happens.
type session struct {
	h    *SessionHandler
	conn *websocket.Conn
	info ConnInfo
	ctx  context.Context
}

// join runs the transition into the Joined state: presence goes online, the
// room sees an updated presence list, the new connection alone receives the
// full history.
func (s *session) join() {
	if err := s.h.presence.SetOnline(s.ctx, s.info.User, s.info.RoomID); err != nil {
		s.h.logger.Error("presence set online failed",
			zap.String("user", s.info.User), zap.Error(err))
	}
	s.h.presences.Broadcast(s.ctx, s.info.RoomID, s.info.User)
	s.replayHistory()
}

// replayHistory unicasts the full message log to the joining connection with
// relationship flags resolved against the joining user.
func (s *session) replayHistory() {
	msgs, err := s.h.messages.ListByRoom(s.ctx, s.info.RoomID)
	if err != nil {
		s.h.logger.Error("history load failed",
			zap.String("room_id", s.info.RoomID), zap.Error(err))
		s.sendError("failed to load history")
		return
	}

	senders := lo.Uniq(lo.Map(msgs, func(m models.Message, _ int) string { return m.Sender }))
	related, err := s.h.relations.BulkRelated(s.ctx, s.info.User, senders)
	if err != nil {
		s.h.logger.Warn("relationship lookup failed during replay",
			zap.String("user", s.info.User), zap.Error(err))
		related = map[string]bool{}
	}
	for i := range msgs {
		msgs[i].IsRelated = related[msgs[i].Sender]
	}

	if err := s.h.hub.SendToConn(s.conn, models.RoomEvent{
		Type:     models.EventHistory,
		RoomID:   s.info.RoomID,
		Messages: msgs,
	}); err != nil {
		s.h.logger.Warn("history replay write failed",
			zap.String("conn_id", s.info.ConnID), zap.Error(err))
	}
}

func (s *session) readLoop() {
	defer s.disconnect()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var event InboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.h.logger.Debug("unparseable inbound event",
				zap.String("conn_id", s.info.ConnID), zap.Error(err))
			continue
		}
		s.dispatch(event)
	}
}

// disconnect runs the transition out of the Joined state. Room membership is
// deliberately untouched: a member stays a member while offline.
func (s *session) disconnect() {
	s.h.hub.RemoveClient(s.info.RoomID, s.conn)
	s.conn.Close()
	observability.DecWSActive()
	observability.IncWSEvent("disconnect")

	if err := s.h.presence.SetOffline(s.ctx, s.info.User); err != nil {
		s.h.logger.Error("presence set offline failed",
			zap.String("user", s.info.User), zap.Error(err))
	}
	s.h.presences.Broadcast(s.ctx, s.info.RoomID, s.info.User)

	s.h.logger.Info("session closed",
		zap.String("conn_id", s.info.ConnID),
		zap.String("user", s.info.User),
		zap.String("room_id", s.info.RoomID),
		zap.Duration("duration", time.Since(s.info.ConnectedAt)))
}

func (s *session) dispatch(event InboundEvent) {
	observability.IncWSEvent(event.Type)
	switch event.Type {
	case inboundSendMessage:
		s.handleSend(event)
	case inboundEditMessage:
		s.handleEdit(event)
	case inboundDeleteMessage:
		s.handleDelete(event)
	case inboundAddReaction:
		s.handleReact(event)
	case inboundMarkRead:
		s.handleMarkRead(event)
	case inboundTyping:
		s.handleTyping(event)
	default:
		s.h.logger.Debug("unknown inbound event type",
			zap.String("type", event.Type), zap.String("conn_id", s.info.ConnID))
	}
}

func (s *session) handleSend(event InboundEvent) {
	if event.Body == "" && event.Attachment == "" {
		s.h.logger.Debug("dropping empty message", zap.String("conn_id", s.info.ConnID))
		return
	}

	msg, appended, err := s.h.messages.Append(s.ctx, s.info.RoomID, repositories.AppendParams{
		ID:         uuid.NewString(),
		Sender:     s.info.User,
		Body:       event.Body,
		Attachment: event.Attachment,
		ReplyTo:    event.ReplyTo,
	})
	if err != nil {
		s.h.logger.Error("append failed", zap.String("room_id", s.info.RoomID), zap.Error(err))
		s.sendError("failed to send message")
		return
	}
	if !appended {
		// Room vanished under us; the append is silently dropped.
		return
	}

	s.h.hub.BroadcastToRoom(s.info.RoomID, models.RoomEvent{
		Type:    models.EventMessageAppended,
		RoomID:  s.info.RoomID,
		Message: &msg,
	})
	go s.h.notifier.MessageAppended(s.ctx, msg)
}

func (s *session) handleEdit(event InboundEvent) {
	if event.MessageID == "" || event.NewBody == "" {
		return
	}

	ok, err := s.h.messages.Edit(s.ctx, s.info.RoomID, event.MessageID, s.info.User, event.NewBody)
	if err != nil {
		s.h.logger.Error("edit failed", zap.String("message_id", event.MessageID), zap.Error(err))
		s.sendError("failed to edit message")
		return
	}
	if !ok {
		return
	}

	s.h.hub.BroadcastToRoom(s.info.RoomID, models.RoomEvent{
		Type:      models.EventMessageEdited,
		RoomID:    s.info.RoomID,
		MessageID: event.MessageID,
		NewBody:   event.NewBody,
	})
}

func (s *session) handleDelete(event InboundEvent) {
	if event.MessageID == "" {
		return
	}

	ok, err := s.h.messages.Delete(s.ctx, s.info.RoomID, event.MessageID, s.info.User)
	if err != nil {
		s.h.logger.Error("delete failed", zap.String("message_id", event.MessageID), zap.Error(err))
		s.sendError("failed to delete message")
		return
	}
	if !ok {
		return
	}

	s.h.hub.BroadcastToRoom(s.info.RoomID, models.RoomEvent{
		Type:      models.EventMessageDeleted,
		RoomID:    s.info.RoomID,
		MessageID: event.MessageID,
	})
}

func (s *session) handleReact(event InboundEvent) {
	if event.MessageID == "" || event.Symbol == "" {
		return
	}

	reactions, ok, err := s.h.messages.React(s.ctx, s.info.RoomID, event.MessageID, event.Symbol)
	if err != nil {
		s.h.logger.Error("react failed", zap.String("message_id", event.MessageID), zap.Error(err))
		s.sendError("failed to add reaction")
		return
	}
	if !ok {
		return
	}

	s.h.hub.BroadcastToRoom(s.info.RoomID, models.RoomEvent{
		Type:      models.EventReactionUpdated,
		RoomID:    s.info.RoomID,
		MessageID: event.MessageID,
		Reactions: reactions,
	})
}

func (s *session) handleMarkRead(event InboundEvent) {
	if len(event.MessageIDs) == 0 {
		return
	}

	marked, err := s.h.messages.MarkRead(s.ctx, s.info.RoomID, s.info.User, event.MessageIDs)
	if err != nil {
		s.h.logger.Error("mark read failed", zap.String("room_id", s.info.RoomID), zap.Error(err))
		s.sendError("failed to mark messages read")
		return
	}
	if len(marked) == 0 {
		return
	}

	s.h.hub.BroadcastToRoom(s.info.RoomID, models.RoomEvent{
		Type:       models.EventReadReceipt,
		RoomID:     s.info.RoomID,
		Reader:     s.info.User,
		MessageIDs: marked,
	})
}

func (s *session) handleTyping(event InboundEvent) {
	s.h.hub.BroadcastToRoomExcept(s.info.RoomID, s.conn, models.RoomEvent{
		Type:     models.EventTyping,
		RoomID:   s.info.RoomID,
		User:     s.info.User,
		IsTyping: event.IsTyping,
	})
}

func (s *session) sendError(reason string) {
	_ = s.h.hub.SendToConn(s.conn, models.RoomEvent{
		Type:   models.EventError,
		Reason: reason,
	})
}
