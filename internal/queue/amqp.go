package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRedialAfter = 30 * time.Second
	amqpHeartbeat      = 10 * time.Second
)

// AMQPPublisher publishes events to a durable queue named after the topic
// on the default exchange.  The connection is opened lazily and reopened
// after a failure; a failed publish is returned to the caller, who is
// expected to log and continue.  Publish runs on the request path, so
// dialing is bounded by a timeout and a failed dial is not retried until
// the redial delay has passed.
type AMQPPublisher struct {
	url         string
	logger      *slog.Logger
	dialTimeout time.Duration
	redialAfter time.Duration

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	declared  map[string]bool
	downUntil time.Time
}

// AMQPOption tunes an AMQPPublisher.
type AMQPOption func(*AMQPPublisher)

// WithDialTimeout bounds the TCP connect and AMQP handshake.
func WithDialTimeout(d time.Duration) AMQPOption {
	return func(p *AMQPPublisher) { p.dialTimeout = d }
}

// WithRedialAfter sets how long publishes fail fast after a failed dial.
func WithRedialAfter(d time.Duration) AMQPOption {
	return func(p *AMQPPublisher) { p.redialAfter = d }
}

// NewAMQPPublisher returns a publisher for the broker at url.  No
// connection is made until the first Publish.
func NewAMQPPublisher(url string, logger *slog.Logger, opts ...AMQPOption) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &AMQPPublisher{
		url:         url,
		logger:      logger,
		dialTimeout: defaultDialTimeout,
		redialAfter: defaultRedialAfter,
		declared:    map[string]bool{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ErrBrokerDown is returned while publishes fail fast after a failed dial.
var ErrBrokerDown = errors.New("rabbitmq unavailable")

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.downUntil) {
		return nil, ErrBrokerDown
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: amqpHeartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		p.downUntil = time.Now().Add(p.redialAfter)
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.downUntil = time.Now().Add(p.redialAfter)
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

// Publish marshals event as JSON and sends it as a persistent message.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.logger.Warn("rabbitmq unavailable", "topic", topic, "err", err)
		return err
	}
	if !p.declared[topic] {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("rabbitmq queue declare %s: %w", topic, err)
		}
		p.declared[topic] = true
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", topic, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish %s: %w", topic, err)
	}
	return nil
}

// Close releases the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
