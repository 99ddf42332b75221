package rabbitmq

import (
	"fmt"
	"time"

	"pulsewatch/config"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const dialAttempts = 5

func NewConnection(rmqCfg *config.RabbitMQConfig, log *zerolog.Logger) (*amqp091.Connection, error) {

	var conn *amqp091.Connection
	var err error
	for i := range dialAttempts {
		conn, err = amqp091.Dial(rmqCfg.BrokerLink)
		if err == nil {
			return conn, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("rabbitmq connection attempt failed")
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, err)
}

// QueueName is the durable queue bound to routingKey.
func QueueName(rmqCfg *config.RabbitMQConfig, routingKey string) string {
	return rmqCfg.QueuePrefix + routingKey
}

// SetupTopology declares the exchange and one durable queue per routing key.
func SetupTopology(conn *amqp091.Connection, rmqCfg *config.RabbitMQConfig, routingKeys ...string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		rmqCfg.ExchangeName,
		rmqCfg.ExchangeType,
		true, false, false, false, nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", rmqCfg.ExchangeName, err)
	}

	for _, key := range routingKeys {
		queue := QueueName(rmqCfg, key)

		if _, err := ch.QueueDeclare(
			queue,
			true, false, false, false, nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		if err := ch.QueueBind(
			queue,
			key,
			rmqCfg.ExchangeName,
			false, nil,
		); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}
