package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

type fakeReader struct {
	messages chan kafkago.Message

	mu        sync.Mutex
	committed []kafkago.Message
	closed    bool
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	r := &fakeReader{messages: make(chan kafkago.Message, len(msgs))}
	for _, m := range msgs {
		r.messages <- m
	}
	return r
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	case m := <-f.messages:
		return m, nil
	}
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	reader := newFakeReader(kafkago.Message{
		Topic: TopicRunRequested,
		Key:   []byte("run-1"),
		Value: []byte(`{"event_id":"e1","payload":{"run_id":"run-1"}}`),
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(TopicRunRequested)},
		},
	})
	c := NewConsumerWithReader(reader, RetryPolicy{}, nil, logging.NewNopLogger())

	var mu sync.Mutex
	var seen []*Message
	c.Subscribe(TopicRunRequested, func(ctx context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg)
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	waitFor(t, func() bool { return c.Processed() == 1 })
	waitFor(t, func() bool { return reader.commitCount() == 1 })

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, TopicRunRequested, seen[0].Topic)
	assert.Equal(t, TopicRunRequested, seen[0].Headers["event_type"])
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	reader := newFakeReader(kafkago.Message{
		Topic: TopicRunRequested,
		Key:   []byte("run-1"),
		Value: []byte(`{"bad":"payload"}`),
	})
	dlWriter := &fakeWriter{}
	deadLetter := NewProducerWithWriter(dlWriter, logging.NewNopLogger())

	c := NewConsumerWithReader(reader, RetryPolicy{
		MaxRetries:      2,
		Backoff:         time.Millisecond,
		DeadLetterTopic: TopicDeadLetter,
	}, deadLetter, logging.NewNopLogger())

	var attempts int
	var mu sync.Mutex
	c.Subscribe(TopicRunRequested, func(ctx context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return assert.AnError
	})

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	waitFor(t, func() bool { return c.DeadLettered() == 1 })

	mu.Lock()
	assert.Equal(t, 3, attempts) // first try + 2 retries
	mu.Unlock()

	dlWriter.mu.Lock()
	defer dlWriter.mu.Unlock()
	require.Len(t, dlWriter.messages, 1)
	assert.Equal(t, TopicDeadLetter, dlWriter.messages[0].Topic)

	headers := make(map[string]string)
	for _, h := range dlWriter.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TopicRunRequested, headers["original_topic"])
	assert.NotEmpty(t, headers["error_message"])

	// Dead-lettered messages are committed so the group moves past them.
	waitFor(t, func() bool { return reader.commitCount() == 1 })
}

func TestConsumer_UnhandledTopicIsCommitted(t *testing.T) {
	reader := newFakeReader(kafkago.Message{Topic: "unknown.topic", Value: []byte("x")})
	c := NewConsumerWithReader(reader, RetryPolicy{}, nil, logging.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	waitFor(t, func() bool { return reader.commitCount() == 1 })
	assert.EqualValues(t, 0, c.Processed())
}

func TestConsumer_StartTwiceFails(t *testing.T) {
	c := NewConsumerWithReader(newFakeReader(), RetryPolicy{}, nil, logging.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrConsumerRunning)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
