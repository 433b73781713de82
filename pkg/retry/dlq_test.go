package retry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	topic   string
	key     string
	data    interface{}
	headers map[string]string
	err     error
}

func (p *recordingProducer) ProduceJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
	p.topic, p.key, p.data, p.headers = topic, key, data, headers
	return p.err
}

func TestKafkaDLQPublisher_PublishToDLQ(t *testing.T) {
	producer := &recordingProducer{}
	pub := NewKafkaDLQPublisher(producer, "ticket-renderer")

	err := pub.PublishToDLQ(context.Background(), &DLQMessage{
		ID:            "evt-1",
		OriginalTopic: "booking-confirmations",
		OriginalKey:   "1234567890",
		Attempts:      4,
	})

	require.NoError(t, err)
	assert.Equal(t, "booking-confirmations.dlq", producer.topic)
	assert.Equal(t, "1234567890", producer.key)
	assert.Equal(t, "4", producer.headers["attempts"])
	assert.Equal(t, "ticket-renderer", producer.headers["source"])

	msg := producer.data.(*DLQMessage)
	assert.False(t, msg.MovedToDLQAt.IsZero())
}

func TestKafkaDLQPublisher_NilMessage(t *testing.T) {
	pub := NewKafkaDLQPublisher(&recordingProducer{}, "svc")
	assert.Error(t, pub.PublishToDLQ(context.Background(), nil))
}

func TestDLQHandler_SuccessSkipsDLQ(t *testing.T) {
	producer := &recordingProducer{}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "svc"), fastConfig(1), "svc")

	err := h.ProcessWithDLQ(context.Background(), &MessageContext{Topic: "t"}, func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, producer.topic)
}

func TestDLQHandler_ExhaustedRetriesParksMessage(t *testing.T) {
	producer := &recordingProducer{}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "svc"), fastConfig(2), "svc")

	err := h.ProcessWithDLQ(context.Background(), &MessageContext{
		ID:      "evt-9",
		Topic:   "booking-confirmations",
		Key:     "k",
		Payload: json.RawMessage(`{"a":1}`),
	}, func(ctx context.Context) error {
		return errors.New("disk full")
	})

	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, "booking-confirmations.dlq", producer.topic)
	msg := producer.data.(*DLQMessage)
	assert.Equal(t, "disk full", msg.Error)
	assert.Equal(t, 3, msg.Attempts)
}

func TestDLQHandler_PublishFailure(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, "svc"), fastConfig(0), "svc")

	err := h.ProcessWithDLQ(context.Background(), &MessageContext{Topic: "t"}, func(ctx context.Context) error {
		return errors.New("render failed")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to DLQ")
}
