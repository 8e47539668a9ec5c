package sink

import (
	"context"

	"github.com/turtacn/fishlwr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// EventSink publishes one species.fitted event per result.  Records are not
// published.
type EventSink struct {
	pub   kafka.Publisher
	topic string
	runID string
}

// NewEventSink returns a sink publishing to topic.
func NewEventSink(pub kafka.Publisher, topic, runID string) *EventSink {
	return &EventSink{pub: pub, topic: topic, runID: runID}
}

// Name implements Sink.
func (s *EventSink) Name() string { return "kafka" }

// Write implements Sink.
func (s *EventSink) Write(ctx context.Context, _ []species.MeasurementRecord, results map[string]species.RegressionResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]*kafka.ProducerMessage, 0, len(results))
	for _, r := range SortedResults(results) {
		m, err := kafka.FittedMessage(s.topic, s.runID, r)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode fitted event").WithDetail(r.Identity())
		}
		msgs = append(msgs, m)
	}
	return s.pub.PublishBatch(ctx, msgs)
}

//Personal.AI order the ending
