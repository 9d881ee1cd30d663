package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"room-service/internal/mocks"
	"room-service/internal/models"
	"room-service/internal/notify"
	"room-service/internal/repositories"
)

type sessionFixture struct {
	hub       *Hub
	rooms     *mocks.RoomRepositoryMock
	messages  *mocks.MessageRepositoryMock
	presence  *mocks.PresenceRepositoryMock
	relations *mocks.RelationshipClientMock
	sink      *mocks.PushSinkMock
	handler   *SessionHandler
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &sessionFixture{
		hub:       NewHub(logger),
		rooms:     new(mocks.RoomRepositoryMock),
		messages:  new(mocks.MessageRepositoryMock),
		presence:  new(mocks.PresenceRepositoryMock),
		relations: new(mocks.RelationshipClientMock),
		sink:      new(mocks.PushSinkMock),
	}
	notifier := notify.NewNotifier(f.presence, f.sink, logger)
	f.handler = NewSessionHandler(f.hub, f.rooms, f.messages, f.presence, f.relations, notifier, nil, logger)
	return f
}

// newSession registers a live websocket pair in the hub and returns the
// session coordinator for its server side plus the client end to observe
// fan-out on.
func (f *sessionFixture) newSession(t *testing.T, user string) (*session, *websocket.Conn) {
	t.Helper()
	server, client := wsPair(t)
	info := ConnInfo{ConnID: newConnID(), User: user, RoomID: "ROOMCODEAA"}
	f.hub.AddClient("ROOMCODEAA", server, info)
	return &session{h: f.handler, conn: server, info: info, ctx: context.Background()}, client
}

func TestSessionSendBroadcastsMessage(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	appended := models.Message{ID: "m1", RoomID: "ROOMCODEAA", Sender: "alice", Body: "hello", ReadBy: []string{"alice"}}
	f.messages.On("Append", mock.Anything, "ROOMCODEAA", mock.MatchedBy(func(p repositories.AppendParams) bool {
		return p.Sender == "alice" && p.Body == "hello" && p.ID != ""
	})).Return(appended, true, nil).Once()
	f.presence.On("OfflineTargets", mock.Anything, "ROOMCODEAA", "alice").Return(nil, nil).Maybe()

	sess.handleSend(InboundEvent{Type: inboundSendMessage, Body: "hello"})

	event := readEvent(t, client)
	require.Equal(t, models.EventMessageAppended, event.Type)
	require.NotNil(t, event.Message)
	require.Equal(t, "hello", event.Message.Body)
	require.Equal(t, []string{"alice"}, event.Message.ReadBy)
	f.messages.AssertExpectations(t)
}

func TestSessionSendEmptyMessageDropped(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	sess.handleSend(InboundEvent{Type: inboundSendMessage})

	requireNoEvent(t, client)
	f.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionSendToVanishedRoomIsSilent(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	f.messages.On("Append", mock.Anything, "ROOMCODEAA", mock.Anything).Return(models.Message{}, false, nil).Once()

	sess.handleSend(InboundEvent{Type: inboundSendMessage, Body: "hello"})

	requireNoEvent(t, client)
	f.messages.AssertExpectations(t)
}

func TestSessionEditByNonSenderNoBroadcast(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "mallory")

	f.messages.On("Edit", mock.Anything, "ROOMCODEAA", "m1", "mallory", "hacked").Return(false, nil).Once()

	sess.handleEdit(InboundEvent{Type: inboundEditMessage, MessageID: "m1", NewBody: "hacked"})

	requireNoEvent(t, client)
	f.messages.AssertExpectations(t)
}

func TestSessionEditBroadcasts(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	f.messages.On("Edit", mock.Anything, "ROOMCODEAA", "m1", "alice", "fixed").Return(true, nil).Once()

	sess.handleEdit(InboundEvent{Type: inboundEditMessage, MessageID: "m1", NewBody: "fixed"})

	event := readEvent(t, client)
	require.Equal(t, models.EventMessageEdited, event.Type)
	require.Equal(t, "m1", event.MessageID)
	require.Equal(t, "fixed", event.NewBody)
}

func TestSessionStoreFailureSendsErrorToActor(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	f.messages.On("Edit", mock.Anything, "ROOMCODEAA", "m1", "alice", "fixed").
		Return(false, errors.New("db down")).Once()

	sess.handleEdit(InboundEvent{Type: inboundEditMessage, MessageID: "m1", NewBody: "fixed"})

	event := readEvent(t, client)
	require.Equal(t, models.EventError, event.Type)
	require.NotEmpty(t, event.Reason)
}

func TestSessionDeleteBroadcasts(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	f.messages.On("Delete", mock.Anything, "ROOMCODEAA", "m1", "alice").Return(true, nil).Once()

	sess.handleDelete(InboundEvent{Type: inboundDeleteMessage, MessageID: "m1"})

	event := readEvent(t, client)
	require.Equal(t, models.EventMessageDeleted, event.Type)
	require.Equal(t, "m1", event.MessageID)
}

func TestSessionReactBroadcastsCounts(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "alice")

	f.messages.On("React", mock.Anything, "ROOMCODEAA", "m1", "👍").
		Return(map[string]int{"👍": 3}, true, nil).Once()

	sess.handleReact(InboundEvent{Type: inboundAddReaction, MessageID: "m1", Symbol: "👍"})

	event := readEvent(t, client)
	require.Equal(t, models.EventReactionUpdated, event.Type)
	require.Equal(t, 3, event.Reactions["👍"])
}

func TestSessionMarkReadBroadcastsOnlyNewReceipts(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "bob")

	f.messages.On("MarkRead", mock.Anything, "ROOMCODEAA", "bob", []string{"m1", "m2"}).
		Return([]string{"m2"}, nil).Once()

	sess.handleMarkRead(InboundEvent{Type: inboundMarkRead, MessageIDs: []string{"m1", "m2"}})

	event := readEvent(t, client)
	require.Equal(t, models.EventReadReceipt, event.Type)
	require.Equal(t, "bob", event.Reader)
	require.Equal(t, []string{"m2"}, event.MessageIDs)
}

func TestSessionMarkReadIdempotentNoBroadcast(t *testing.T) {
	f := newSessionFixture(t)
	sess, client := f.newSession(t, "bob")

	f.messages.On("MarkRead", mock.Anything, "ROOMCODEAA", "bob", []string{"m1"}).
		Return([]string{}, nil).Once()

	sess.handleMarkRead(InboundEvent{Type: inboundMarkRead, MessageIDs: []string{"m1"}})

	requireNoEvent(t, client)
	f.messages.AssertExpectations(t)
}

func TestSessionTypingExcludesSender(t *testing.T) {
	f := newSessionFixture(t)
	sess, senderClient := f.newSession(t, "alice")
	_, otherClient := f.newSession(t, "bob")

	sess.handleTyping(InboundEvent{Type: inboundTyping, IsTyping: true})

	event := readEvent(t, otherClient)
	require.Equal(t, models.EventTyping, event.Type)
	require.Equal(t, "alice", event.User)
	require.True(t, event.IsTyping)

	requireNoEvent(t, senderClient)
}
