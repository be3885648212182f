// Package events publishes booking lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/meinhoongagan/homeservice-app/models"
)

// Writer is the subset of kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher is what services publish lifecycle events through.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// BookingEvent is emitted once per applied booking transition.
type BookingEvent struct {
	Type       string               `json:"type"`
	BookingID  string               `json:"bookingId"`
	CustomerID string               `json:"customerId"`
	ProviderID string               `json:"providerId"`
	From       models.BookingStatus `json:"from,omitempty"`
	To         models.BookingStatus `json:"to"`
	At         models.Timestamp     `json:"at"`
}

const (
	TypeBookingCreated    = "booking.created"
	TypeBookingTransition = "booking.transition"
	TypeBookingArchived   = "booking.archived"
)

type KafkaProducer struct {
	writer Writer
}

// NewKafkaProducer flushes each event almost immediately and gives up after a
// few attempts, so one publish is bounded by a few seconds.
func NewKafkaProducer(brokerURL, topic string) *KafkaProducer {
	return &KafkaProducer{writer: newKafkaWriter(brokerURL, topic)}
}

func newKafkaWriter(brokerURL, topic string) *skafka.Writer {
	return &skafka.Writer{
		Addr:         skafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: 5 * time.Second,
		RequiredAcks: skafka.RequireOne,
	}
}

// NewKafkaProducerWithWriter allows injecting a test writer.
func NewKafkaProducerWithWriter(w Writer) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// Publish writes value as JSON. Messages keyed by booking id land on one
// partition, so consumers see a booking's transitions in order.
func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		log.Println("failed to marshal kafka value:", err)
		return err
	}
	msg := skafka.Message{Key: []byte(key), Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Println("kafka write error:", err)
		return err
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close() error                                       { return nil }
