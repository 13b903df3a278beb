package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to "<prefix>.<topic>".  Messages are keyed
// by reservation id so that all events of one reservation land on the
// same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
}

// NewKafkaPublisher builds a writer for brokers.  Topics are created on
// first write when the cluster allows it.
func NewKafkaPublisher(brokers []string, prefix string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaPublisher{writer: w, prefix: prefix}
}

// TopicName returns the full Kafka topic for topic.
func (p *KafkaPublisher) TopicName(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish writes one JSON message.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: p.TopicName(topic),
		Key:   []byte(eventKey(event)),
		Value: body,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func eventKey(event interface{}) string {
	switch e := event.(type) {
	case TicketIssuedEvent:
		return strconv.FormatUint(e.ReservationID, 10)
	case *TicketIssuedEvent:
		return strconv.FormatUint(e.ReservationID, 10)
	case ReservationStatusChangedEvent:
		return strconv.FormatUint(e.ReservationID, 10)
	case *ReservationStatusChangedEvent:
		return strconv.FormatUint(e.ReservationID, 10)
	}
	return ""
}
