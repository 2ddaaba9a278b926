package kafka

import (
	"context"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicRunRequested,
		Key:     []byte("run-1"),
		Value:   []byte(`{"run_id":"run-1"}`),
		Headers: map[string]string{"event_type": TopicRunRequested},
	})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	assert.Equal(t, TopicRunRequested, w.messages[0].Topic)
	assert.Equal(t, []byte("run-1"), w.messages[0].Key)
	assert.False(t, w.messages[0].Time.IsZero())
	assert.EqualValues(t, 1, p.Sent())
}

func TestProducer_Publish_Validation(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, logging.NewNopLogger())
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("x")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t"}))

	big := make([]byte, defaultMaxMessageBytes+1)
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t", Value: big}))
}

func TestProducer_Publish_WriteErrorCountsAsFailed(t *testing.T) {
	w := &fakeWriter{err: assert.AnError}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	require.Error(t, err)
	assert.EqualValues(t, 1, p.Failed())
	assert.EqualValues(t, 0, p.Sent())
}

func TestProducer_PublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_PublishEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, logging.NewNopLogger())

	env, err := NewEventEnvelope(TopicRunFailed, "worker", RunFailedPayload{
		RunID: "run-2", Stage: "scoring", Reason: "db unavailable",
	})
	require.NoError(t, err)

	require.NoError(t, p.PublishEnvelope(context.Background(), TopicRunFailed, "run-2", env))
	require.Len(t, w.messages, 1)

	parsed, err := EnvelopeFromMessage(&Message{Value: w.messages[0].Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, parsed.EventID)
}
