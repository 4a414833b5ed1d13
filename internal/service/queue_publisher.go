package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/speaknote/internal/queue"
)

// Publisher emits activity events. Implementations must be safe for
// concurrent use; callers treat failures as non-fatal.
type Publisher interface {
	PublishActivityRecorded(ctx context.Context, ev queue.ActivityRecordedEvent) error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishActivityRecorded(context.Context, queue.ActivityRecordedEvent) error {
	return nil
}

// AMQPPublisher dials the broker per event.
type AMQPPublisher struct {
	URL string
}

// PublishActivityRecorded publishes ev to the durable activity.recorded
// queue as a persistent message.
func (p AMQPPublisher) PublishActivityRecorded(ctx context.Context, ev queue.ActivityRecordedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.ActivityRecordedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queue.ActivityRecordedQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}
