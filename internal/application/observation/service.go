// Package observation accepts user-submitted catches.  Submissions are
// either applied to the accumulator directly or queued on Kafka for the
// worker, which applies them and announces refitted species.
package observation

import (
	"context"

	"github.com/turtacn/fishlwr/internal/accumulator"
	"github.com/turtacn/fishlwr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// Recorder is the accumulator surface the service needs.
type Recorder interface {
	AddObservation(ctx context.Context, obs species.Observation) (accumulator.Outcome, error)
	Algorithm(ctx context.Context, name string) (species.RegressionResult, bool, error)
}

// Receipt answers a submission.  Outcome is nil when the observation was
// queued.
type Receipt struct {
	Queued  bool                 `json:"queued"`
	Outcome *accumulator.Outcome `json:"outcome,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithQueue makes Submit publish to topic instead of applying in-process.
func WithQueue(pub kafka.Publisher, topic string) Option {
	return func(s *Service) { s.queue, s.queueTopic = pub, topic }
}

// WithFittedEvents publishes a species.fitted event after every successful
// refit.
func WithFittedEvents(pub kafka.Publisher, topic string) Option {
	return func(s *Service) { s.events, s.eventTopic = pub, topic }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service routes observations.
type Service struct {
	rec        Recorder
	queue      kafka.Publisher
	queueTopic string
	events     kafka.Publisher
	eventTopic string
	logger     logging.Logger
}

// NewService returns a Service applying observations to rec.
func NewService(rec Recorder, opts ...Option) *Service {
	s := &Service{rec: rec, logger: logging.NewNopLogger()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates obs and either queues or applies it.
func (s *Service) Submit(ctx context.Context, obs species.Observation) (Receipt, error) {
	if !obs.Valid() {
		return Receipt{}, errors.New(errors.ErrCodeInvalidMeasurement, "observation needs a species name and positive length and weight")
	}
	if s.queue == nil {
		out, err := s.Apply(ctx, obs)
		if err != nil {
			return Receipt{}, err
		}
		return Receipt{Outcome: &out}, nil
	}

	msg, err := kafka.ObservationMessage(s.queueTopic, obs)
	if err != nil {
		return Receipt{}, err
	}
	if err := s.queue.Publish(ctx, msg); err != nil {
		return Receipt{}, errors.Wrap(err, errors.CodeMessageQueueError, "failed to queue observation")
	}
	return Receipt{Queued: true}, nil
}

// Apply adds obs to the accumulator and, on a successful refit, publishes
// the new fit.  A failed publish is logged; the observation is already
// stored.
func (s *Service) Apply(ctx context.Context, obs species.Observation) (accumulator.Outcome, error) {
	out, err := s.rec.AddObservation(ctx, obs)
	if err != nil {
		return out, err
	}
	if out.Status != accumulator.StatusSuccess || s.events == nil {
		return out, nil
	}

	r, ok, err := s.rec.Algorithm(ctx, obs.SpeciesName)
	if err != nil || !ok {
		s.logger.Warn("refit stored but not readable for publishing",
			logging.EntityName(obs.SpeciesName), logging.Err(err))
		return out, nil
	}
	msg, err := kafka.FittedMessage(s.eventTopic, "", r)
	if err == nil {
		err = s.events.Publish(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("fitted event not published", logging.EntityName(obs.SpeciesName), logging.Err(err))
	}
	return out, nil
}

// Handler adapts Apply for the observation topic consumer.  Only storage
// failures are returned, so a fit failure never sends a message to the
// dead-letter topic.
func (s *Service) Handler() kafka.Handler {
	return kafka.ObservationHandler(func(ctx context.Context, obs species.Observation) error {
		_, err := s.Apply(ctx, obs)
		return err
	})
}

//Personal.AI order the ending
