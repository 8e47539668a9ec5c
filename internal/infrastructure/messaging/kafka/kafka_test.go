package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// ─────────────────────────────────────────────────────────────────────────────
// fakes
// ─────────────────────────────────────────────────────────────────────────────

type mockWriter struct {
	mu     sync.Mutex
	err    error
	msgs   []kafka.Message
	closed int
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed++
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	if len(f.queue) == 0 {
		f.once.Do(func() { close(f.drained) })
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Producer
// ─────────────────────────────────────────────────────────────────────────────

func TestProducer_Publish(t *testing.T) {
	t.Parallel()

	w := &mockWriter{}
	p := NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"b:9092"}}, nil)

	require.NoError(t, p.Publish(context.Background(), &ProducerMessage{
		Topic: "t", Key: []byte("k"), Value: []byte("v"), Headers: map[string]string{"h": "1"},
	}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "t", w.msgs[0].Topic)
	assert.Equal(t, []kafka.Header{{Key: "h", Value: []byte("1")}}, w.msgs[0].Headers)
	assert.False(t, w.msgs[0].Time.IsZero())
	assert.EqualValues(t, 1, p.Sent())
}

func TestProducer_Validation(t *testing.T) {
	t.Parallel()

	p := NewProducerWithWriter(&mockWriter{}, ProducerConfig{MaxMessageBytes: 4}, nil)
	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"nil", nil},
		{"no topic", &ProducerMessage{Value: []byte("v")}},
		{"no value", &ProducerMessage{Topic: "t"}},
		{"too large", &ProducerMessage{Topic: "t", Value: []byte("12345")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, errors.IsCode(p.Publish(context.Background(), tt.msg), errors.ErrCodeValidation))
		})
	}
}

func TestProducer_WriteFailureAndClose(t *testing.T) {
	t.Parallel()

	w := &mockWriter{err: stderrors.New("broker down")}
	p := NewProducerWithWriter(w, ProducerConfig{}, nil)
	err := p.PublishBatch(context.Background(), []*ProducerMessage{{Topic: "t", Value: []byte("v")}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessagingError))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")}), ErrProducerClosed)
}

func TestValidateConfigs(t *testing.T) {
	t.Parallel()
	assert.Error(t, ValidateProducerConfig(ProducerConfig{}))
	assert.Error(t, ValidateConsumerConfig(ConsumerConfig{Brokers: []string{"b"}, GroupID: "g"}))
	assert.NoError(t, ValidateConsumerConfig(ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", Topics: []string{"t"}}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Consumer
// ─────────────────────────────────────────────────────────────────────────────

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_RetryThenSucceed(t *testing.T) {
	t.Parallel()

	r := newFakeReader(kafka.Message{Topic: "obs", Offset: 7, Value: []byte("x")})
	c := NewConsumerWithReader(r, ConsumerConfig{Retry: RetryConfig{MaxRetries: 3, RetryBackoff: time.Millisecond}}, nil, nil)

	calls := 0
	c.Subscribe("obs", func(context.Context, *Message) error {
		calls++
		if calls < 3 {
			return stderrors.New("transient")
		}
		return nil
	})
	runUntilDrained(t, c, r)

	consumed, processed, retried, dead := c.Stats()
	assert.EqualValues(t, 1, consumed)
	assert.EqualValues(t, 1, processed)
	assert.EqualValues(t, 2, retried)
	assert.Zero(t, dead)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumer_DeadLetter(t *testing.T) {
	t.Parallel()

	r := newFakeReader(kafka.Message{Topic: "obs", Offset: 3, Key: []byte("k"), Value: []byte("bad")})
	w := &mockWriter{}
	dlq := NewProducerWithWriter(w, ProducerConfig{}, nil)
	c := NewConsumerWithReader(r, ConsumerConfig{
		Retry: RetryConfig{MaxRetries: 1, RetryBackoff: time.Millisecond, DeadLetterTopic: "dlq"},
	}, dlq, nil)
	c.Subscribe("obs", func(context.Context, *Message) error { return stderrors.New("poison") })

	runUntilDrained(t, c, r)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "dlq", w.msgs[0].Topic)
	assert.Equal(t, []byte("bad"), w.msgs[0].Value)
	headers := map[string]string{}
	for _, h := range w.msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "obs", headers["original_topic"])
	assert.Equal(t, "3", headers["original_offset"])
	assert.Equal(t, "poison", headers["error_message"])
	assert.Equal(t, []int64{3}, r.committed)
}

func TestConsumer_AlreadyRunning(t *testing.T) {
	t.Parallel()

	r := newFakeReader()
	c := NewConsumerWithReader(r, ConsumerConfig{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx), ErrAlreadyRunning)
	cancel()
	require.NoError(t, <-done)
}

// ─────────────────────────────────────────────────────────────────────────────
// Envelopes
// ─────────────────────────────────────────────────────────────────────────────

func TestObservationRoundTrip(t *testing.T) {
	t.Parallel()

	obs := species.Observation{SpeciesName: "Shad", LengthCm: 40, WeightKg: 0.8}
	msg, err := ObservationMessage("fishlwr.observation.submitted", obs)
	require.NoError(t, err)
	assert.Equal(t, []byte("shad"), msg.Key)
	assert.Equal(t, EventObservationSubmitted, msg.Headers["event_type"])

	var got species.Observation
	h := ObservationHandler(func(_ context.Context, o species.Observation) error { got = o; return nil })
	require.NoError(t, h(context.Background(), &Message{Value: msg.Value}))
	assert.Equal(t, obs, got)
}

func TestObservationHandler_Rejects(t *testing.T) {
	t.Parallel()

	h := ObservationHandler(func(context.Context, species.Observation) error { return nil })
	assert.Error(t, h(context.Background(), &Message{Value: []byte("{")}))

	fitted, err := FittedMessage("t", "run-1", species.RegressionResult{EntityID: "1", EntityName: "Shad"})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), fitted.Key)
	err = h(context.Background(), &Message{Value: fitted.Value})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	env, err := DecodeEnvelope(fitted.Value)
	require.NoError(t, err)
	assert.Equal(t, "run-1", env.RunID)
	assert.NotEmpty(t, env.EventID)
}

//Personal.AI order the ending
