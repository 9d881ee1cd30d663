package notify

import (
	"context"

	"room-service/internal/rabbitmq"
)

const pushRoutingKey = "push.send"

// PushRequest is the envelope handed to the external delivery worker.
type PushRequest struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AMQPSink publishes push requests to the push exchange.
type AMQPSink struct {
	publisher rabbitmq.Publisher
}

// NewAMQPSink constructs an AMQPSink.
func NewAMQPSink(publisher rabbitmq.Publisher) *AMQPSink {
	return &AMQPSink{publisher: publisher}
}

// Push enqueues one push request.
func (s *AMQPSink) Push(ctx context.Context, token string, title string, body string) error {
	return s.publisher.Publish(ctx, pushRoutingKey, PushRequest{
		Token: token,
		Title: title,
		Body:  body,
	})
}
