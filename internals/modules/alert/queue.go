package alert

import (
	"context"
	"encoding/json"

	"pulsewatch/internals/modules/channel"
	"pulsewatch/pkg/rabbitmq"

	"github.com/google/uuid"
)

// QueuePublisher publishes one message with the given routing key.
type QueuePublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// QueueNotifier hands email, sms and call alerts to downstream gateways
// over the broker. The routing key is the channel type.
type QueueNotifier struct {
	publisher QueuePublisher
}

type queuedAlert struct {
	ChannelID   uuid.UUID `json:"channel_id"`
	Destination string    `json:"destination"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Message     Message   `json:"message"`
}

func NewQueueNotifier(publisher QueuePublisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (n *QueueNotifier) Notify(ctx context.Context, ch channel.Channel, msg Message) error {
	payload, err := json.Marshal(queuedAlert{
		ChannelID:   ch.ID,
		Destination: ch.Destination,
		Subject:     msg.Subject(),
		Body:        msg.Text(),
		Message:     msg,
	})
	if err != nil {
		return err
	}

	body, err := json.Marshal(rabbitmq.EventPayload{
		ID:      uuid.New(),
		Type:    "alert." + string(msg.Kind),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	return n.publisher.Publish(ctx, string(ch.Type), body)
}
