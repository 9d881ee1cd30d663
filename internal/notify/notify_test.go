package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"room-service/internal/mocks"
	"room-service/internal/models"
)

var _ PushSink = (*mocks.PushSinkMock)(nil)

func TestNotifierPushesToOfflineMembers(t *testing.T) {
	presence := new(mocks.PresenceRepositoryMock)
	sink := new(mocks.PushSinkMock)
	notifier := NewNotifier(presence, sink, zap.NewNop())

	presence.On("OfflineTargets", mock.Anything, "ROOMCODEAA", "alice").Return([]models.PushTarget{
		{User: "bob", Token: "tok-bob"},
		{User: "carol", Token: "tok-carol"},
	}, nil).Once()
	sink.On("Push", mock.Anything, "tok-bob", "New message from alice", "hello").Return(nil).Once()
	sink.On("Push", mock.Anything, "tok-carol", "New message from alice", "hello").Return(nil).Once()

	notifier.MessageAppended(context.Background(), models.Message{
		ID: "m1", RoomID: "ROOMCODEAA", Sender: "alice", Body: "hello",
	})

	presence.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestNotifierOneFailureDoesNotBlockOthers(t *testing.T) {
	presence := new(mocks.PresenceRepositoryMock)
	sink := new(mocks.PushSinkMock)
	notifier := NewNotifier(presence, sink, zap.NewNop())

	presence.On("OfflineTargets", mock.Anything, "ROOMCODEAA", "alice").Return([]models.PushTarget{
		{User: "bob", Token: "tok-bob"},
		{User: "carol", Token: "tok-carol"},
	}, nil).Once()
	sink.On("Push", mock.Anything, "tok-bob", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	sink.On("Push", mock.Anything, "tok-carol", mock.Anything, mock.Anything).Return(nil).Once()

	notifier.MessageAppended(context.Background(), models.Message{
		ID: "m1", RoomID: "ROOMCODEAA", Sender: "alice", Body: "hello",
	})

	sink.AssertExpectations(t)
}

func TestNotifierAttachmentOnlyPreview(t *testing.T) {
	presence := new(mocks.PresenceRepositoryMock)
	sink := new(mocks.PushSinkMock)
	notifier := NewNotifier(presence, sink, zap.NewNop())

	presence.On("OfflineTargets", mock.Anything, "ROOMCODEAA", "alice").Return([]models.PushTarget{
		{User: "bob", Token: "tok-bob"},
	}, nil).Once()
	sink.On("Push", mock.Anything, "tok-bob", "New message from alice", "Image message").Return(nil).Once()

	notifier.MessageAppended(context.Background(), models.Message{
		ID: "m1", RoomID: "ROOMCODEAA", Sender: "alice", Attachment: "https://cdn.example/pic.png",
	})

	sink.AssertExpectations(t)
}

func TestNotifierSkipsWhenEligibilityLookupFails(t *testing.T) {
	presence := new(mocks.PresenceRepositoryMock)
	sink := new(mocks.PushSinkMock)
	notifier := NewNotifier(presence, sink, zap.NewNop())

	presence.On("OfflineTargets", mock.Anything, "ROOMCODEAA", "alice").
		Return(nil, errors.New("db down")).Once()

	notifier.MessageAppended(context.Background(), models.Message{
		ID: "m1", RoomID: "ROOMCODEAA", Sender: "alice", Body: "hello",
	})

	sink.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
