package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"room-service/internal/mocks"
)

func TestAMQPSinkPublishesPushRequest(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	sink := NewAMQPSink(publisher)

	publisher.On("Publish", mock.Anything, "push.send", PushRequest{
		Token: "tok-bob",
		Title: "New message from alice",
		Body:  "hello",
	}).Return(nil).Once()

	err := sink.Push(context.Background(), "tok-bob", "New message from alice", "hello")
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}
