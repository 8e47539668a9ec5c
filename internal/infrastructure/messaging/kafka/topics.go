package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventSpeciesFitted        = "species.fitted"
	EventObservationSubmitted = "observation.submitted"
	EventRunCompleted         = "run.completed"
)

const schemaVersion = "1"

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// RunCompletedPayload summarizes one pipeline run.
type RunCompletedPayload struct {
	RunID      string         `json:"run_id"`
	Total      int            `json:"total"`
	Success    int            `json:"success"`
	Failure    int            `json:"failure"`
	ByCategory map[string]int `json:"by_category"`
	Cancelled  bool           `json:"cancelled"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType, source, runID string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		RunID:         runID,
		Payload:       raw,
	}, nil
}

// ToMessage encodes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"event_id":       e.EventID,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed message value.
func DecodeEnvelope(value []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed event envelope")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event envelope has no type")
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e *EventEnvelope) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "malformed event payload").WithDetail("type=" + e.EventType)
	}
	return nil
}

// FittedMessage builds the species.fitted message for one result.
func FittedMessage(topic, runID string, r species.RegressionResult) (*ProducerMessage, error) {
	env, err := NewEnvelope(EventSpeciesFitted, "fishlwr-pipeline", runID, r)
	if err != nil {
		return nil, err
	}
	return env.ToMessage(topic, r.Identity())
}

// ObservationMessage builds the observation.submitted message.
func ObservationMessage(topic string, o species.Observation) (*ProducerMessage, error) {
	env, err := NewEnvelope(EventObservationSubmitted, "fishlwr-api", "", o)
	if err != nil {
		return nil, err
	}
	return env.ToMessage(topic, species.NameKey(o.SpeciesName))
}

// ObservationHandler adapts fn into a Handler for the observation topic.
// Malformed messages fail validation on every retry and end in the DLQ.
func ObservationHandler(fn func(context.Context, species.Observation) error) Handler {
	return func(ctx context.Context, msg *Message) error {
		env, err := DecodeEnvelope(msg.Value)
		if err != nil {
			return err
		}
		if env.EventType != EventObservationSubmitted {
			return errors.Newf(errors.ErrCodeValidation, "unexpected event type %q", env.EventType)
		}
		var o species.Observation
		if err := env.DecodePayload(&o); err != nil {
			return err
		}
		return fn(ctx, o)
	}
}

//Personal.AI order the ending
