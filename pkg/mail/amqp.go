package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/slogx"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNotConfirmed = errors.New("amqp: publish was not acknowledged by the broker")

// AMQPSettings configure broker delivery. A separate worker consumes the
// queue bound to Exchange and performs the actual SMTP hand-off.
type AMQPSettings struct {
	URL        string
	Exchange   string
	RoutingKey string
	Timeout    time.Duration
}

// emailMessage is the JSON payload published to the broker.
type emailMessage struct {
	Type    string   `json:"type"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html"`
}

// publishFunc publishes and reports whether the broker acknowledged it.
type publishFunc func(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error)

// AMQPMailer publishes messages to a RabbitMQ exchange with publisher
// confirms, so Send only succeeds once the broker has taken ownership.
type AMQPMailer struct {
	cfg     AMQPSettings
	conn    *amqp.Connection
	ch      *amqp.Channel
	publish publishFunc
}

// DialAMQP connects, enables confirm mode and declares a durable topic exchange.
func DialAMQP(cfg AMQPSettings) (*AMQPMailer, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "auth.events"
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = "email.send"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: confirm mode: %w", err)
	}

	m := &AMQPMailer{cfg: cfg, conn: conn, ch: ch}
	m.publish = m.publishConfirmed
	return m, nil
}

func (m *AMQPMailer) publishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	dc, err := m.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, true, false, msg)
	if err != nil {
		return false, err
	}
	if dc == nil {
		return true, nil // channel not in confirm mode
	}
	return dc.WaitContext(ctx)
}

// Send publishes msg and waits for the broker confirm.
func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return ErrNoRecipient
	}

	body, err := json.Marshal(emailMessage{
		Type:    "email",
		To:      recipients,
		Subject: msg.Subject,
		Body:    msg.Body,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	headers := make(amqp.Table)
	if reqID := slogx.RequestIDFrom(ctx); reqID != "" {
		headers[slogx.RequestIDHeader] = reqID
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	acked, err := m.publish(ctx, m.cfg.Exchange, m.cfg.RoutingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

// Close shuts down the channel and connection.
func (m *AMQPMailer) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
