// Package kafka publishes pipeline events and consumes submitted
// observations over Kafka via segmentio/kafka-go.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record handed to a Handler.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one consumed message.  A non-nil error triggers the
// consumer's retry policy.
type Handler func(ctx context.Context, msg *Message) error

// Publisher is the producer surface used by sinks and the dead-letter path.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
	PublishBatch(ctx context.Context, msgs []*ProducerMessage) error
	Close() error
}

//Personal.AI order the ending
