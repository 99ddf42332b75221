package rabbitmq

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

var ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed by broker")

// Publisher publishes persistent messages on a channel in confirm mode.
type Publisher struct {
	ch             *amqp091.Channel // AMQP channel for publishing messages
	exchange       string           // Exchange to publish messages to
	confirmTimeout time.Duration
}

func NewPublisher(conn *amqp091.Connection, exchange string) (*Publisher, error) {

	if conn == nil {
		return nil, errors.New("AMQP connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, err
	}

	return &Publisher{
		ch:             ch,
		exchange:       exchange,
		confirmTimeout: 5 * time.Second,
	}, nil
}

// Publish sends body with routingKey and waits for the broker to confirm it.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if p.ch == nil {
		return errors.New("AMQP channel is nil")
	}

	confirmCtx, cancel := context.WithTimeout(ctx, p.confirmTimeout)
	defer cancel()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(
		confirmCtx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	acked, err := confirm.WaitContext(confirmCtx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
