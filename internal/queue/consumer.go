package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TicketLog appends one line per ticket.issued event to a file.
type TicketLog struct {
	Path string

	mu sync.Mutex
}

// Append writes the event line, creating the directory on first use.
func (l *TicketLog) Append(ev TicketIssuedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatTicketLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatTicketLine renders the single-line audit entry.
func FormatTicketLine(ev TicketIssuedEvent) string {
	return fmt.Sprintf("[%s] Ticket issued | ticket=%s | reservation_id=%d | user_id=%d | room=%q | stay=%s..%s | total=%d cents\n",
		ev.IssuedAt, ev.TicketNumber, ev.ReservationID, ev.UserID, ev.RoomNumber, ev.CheckIn, ev.CheckOut, ev.TotalCents)
}

// HandleTicketIssued decodes a delivery body and appends it to the log.
func (l *TicketLog) HandleTicketIssued(body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TicketNumber == "" {
		return errors.New("event without ticket number")
	}
	return l.Append(ev)
}

// StartTicketConsumer consumes the ticket.issued queue until ctx is done,
// reconnecting with exponential backoff.  Bad messages are rejected
// without requeue so one poison message cannot stall the queue.
func StartTicketConsumer(ctx context.Context, url string, sink *TicketLog, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("ticket consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeTickets(ctx, conn, sink, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("ticket consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeTickets(ctx context.Context, conn *amqp.Connection, sink *TicketLog, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("ticket consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(TopicTicketIssued, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TopicTicketIssued, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.HandleTicketIssued(d.Body); err != nil {
				logger.Error("ticket consumer: handle message failed", "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
