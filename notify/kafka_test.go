package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "sanket.index"}, withWriter(writer))
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err = p.Publish(context.Background(), Event{
		Type:      EventIndexActivated,
		Version:   "abcd1234abcd1234",
		Namespace: "g000002-abcd1234abcd",
		Previous:  "g000001-0000aaaa0000",
		Records:   85,
		Chunks:    17,
		SkipRate:  0.15,
		Time:      at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "abcd1234abcd1234", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "index.activated", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "index.activated", decoded["type"])
	assert.Equal(t, "g000002-abcd1234abcd", decoded["namespace"])
	assert.Equal(t, "g000001-0000aaaa0000", decoded["previous"])
	assert.InDelta(t, 0.15, decoded["skip_rate"], 1e-9)
	assert.NotContains(t, decoded, "reason")

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_StampsTime(t *testing.T) {
	msg, err := encodeMessage(Event{Type: EventVersionSkipped})
	require.NoError(t, err)
	assert.False(t, msg.Time.IsZero())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, withWriter(writer))
	require.NoError(t, err)

	err = p.Publish(context.Background(), Event{Type: EventCycleFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle.failed")
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"})
	assert.ErrorIs(t, err, ErrBrokersRequired)

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"b:9092"}})
	assert.ErrorIs(t, err, ErrTopicRequired)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, DefaultWriteTimeout, p.timeout)
	assert.IsType(t, &kafka.Writer{}, p.writer)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: EventIndexActivated}))
	assert.NoError(t, p.Close())
}
