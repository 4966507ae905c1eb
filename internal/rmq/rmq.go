// Package rmq provides the small amount of AMQP plumbing used to relay
// accepted notifications to downstream consumers.
package rmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func FormatConnectionString(host string, port int, vhost, user, password string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", user, password, host, port, vhost)
}

// Producer publishes messages to a fanout exchange
type Producer interface {
	Send(ctx context.Context, data json.RawMessage) error
}

type producer struct {
	ch       *amqp.Channel
	exchange string
}

func NewProducer(conn *amqp.Connection, exchange string) (Producer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	return &producer{ch: ch, exchange: exchange}, nil
}

func (p *producer) Send(ctx context.Context, data json.RawMessage) error {
	return p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		Body:        data,
	})
}
