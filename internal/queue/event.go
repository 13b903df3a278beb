// Package queue defines message payloads exchanged over the message broker
// and the publishers and consumers that move them.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topics (RabbitMQ queue names, Kafka topic suffixes).
const (
	TopicTicketIssued             = "ticket.issued"
	TopicReservationStatusChanged = "reservation.status_changed"
)

// TicketIssuedEvent is published after a ticket row has been committed.
// It carries enough data for downstream consumers to log or notify
// without querying the primary database.
type TicketIssuedEvent struct {
	EventID       string `json:"event_id"`
	TicketNumber  string `json:"ticket_number"`
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	RoomNumber    string `json:"room_number"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	TotalCents    int64  `json:"total_cents"`
	IssuedAt      string `json:"issued_at"`
}

// ReservationStatusChangedEvent is published after every committed status
// transition.  Source names what drove it (a provider name or "manual").
type ReservationStatusChangedEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Source        string `json:"source"`
	OccurredAt    string `json:"occurred_at"`
}

// Publisher delivers an event to a topic.  Implementations must not
// panic; errors are returned so callers can log and move on.
type Publisher interface {
	Publish(ctx context.Context, topic string, event interface{}) error
}

// NopPublisher discards events.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// NewEventID returns a fresh identifier for an event.
func NewEventID() string { return uuid.NewString() }

// Timestamp formats t the way every event does.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
