package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/rabbitmq/amqp091-go"
)

const (
	Exchange     = "dashboard.activity"
	exchangeType = "fanout"
)

// AMQPSink publishes activity rows to a durable fanout exchange.
type AMQPSink struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", Exchange, err)
	}

	return &AMQPSink{conn: conn, ch: ch}, nil
}

type event struct {
	ID          uint                   `json:"id"`
	UserID      string                 `json:"user_id"`
	ActionType  string                 `json:"action_type"`
	CharacterID *uint                  `json:"character_id"`
	Details     map[string]interface{} `json:"details"`
	CreatedAt   time.Time              `json:"created_at"`
}

func (s *AMQPSink) Publish(ctx context.Context, row models.ActivityLog) error {
	body, err := json.Marshal(event{
		ID:          row.ID,
		UserID:      row.UserID.String(),
		ActionType:  row.ActionType,
		CharacterID: row.CharacterID,
		Details:     row.Details,
		CreatedAt:   row.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal activity event: %w", err)
	}

	err = s.ch.PublishWithContext(ctx,
		Exchange,
		"", // routing key is ignored by fanout
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}
