// Package kafka delivers groups as Kafka messages.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/feedship/internal/domain"
)

// Config configures the Kafka sink.
type Config struct {
	Brokers []string
	Topic   string

	// Key is set on every message. Empty uses Topic, so all groups land on
	// one partition in delivery order.
	Key string

	// MaxMessageBytes must be at least the largest group payload.
	// Larger payloads are rejected without reaching the broker.
	MaxMessageBytes int64

	// WriteTimeout bounds a single produce request. Zero uses the kafka-go default.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink implements ports.Sink by producing one message per group.
type Sink struct {
	writer   messageWriter
	topic    string
	key      []byte
	maxBytes int64
}

// NewSink creates a synchronous, all-acks writer for config.Topic.
func NewSink(config Config) (*Sink, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: no brokers configured")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka sink: no topic configured")
	}
	if config.Key == "" {
		config.Key = config.Topic
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchBytes:   config.MaxMessageBytes,
		WriteTimeout: config.WriteTimeout,
		// Retries are owned by the delivery pipeline.
		MaxAttempts: 1,
	}
	return newSink(w, config.Topic, config.Key, config.MaxMessageBytes), nil
}

func newSink(w messageWriter, topic, key string, maxBytes int64) *Sink {
	return &Sink{writer: w, topic: topic, key: []byte(key), maxBytes: maxBytes}
}

// Deliver produces payload as a single message under the sink's key.
// Payloads the topic can never accept are reported as domain.ErrRejected.
func (s *Sink) Deliver(ctx context.Context, payload []byte) error {
	if s.maxBytes > 0 && int64(len(payload)) > s.maxBytes {
		return fmt.Errorf("%w: payload of %d bytes exceeds max message size %d",
			domain.ErrRejected, len(payload), s.maxBytes)
	}

	msg := kafka.Message{
		Key:   s.key,
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		if tooLarge(err) {
			return fmt.Errorf("write to topic %s: %w: %w", s.topic, domain.ErrRejected, err)
		}
		return fmt.Errorf("write to topic %s: %w", s.topic, err)
	}
	return nil
}

// tooLarge reports whether err says the message exceeds a writer or broker limit.
func tooLarge(err error) bool {
	var mtl kafka.MessageTooLargeError
	return errors.As(err, &mtl) || errors.Is(err, kafka.MessageSizeTooLarge)
}

// Close flushes and closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
