package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/homeservice-app/models"
)

// fakeWriter records messages written.
type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)
	ev := BookingEvent{
		Type:      TypeBookingTransition,
		BookingID: "b1",
		From:      models.StatusConfirmed,
		To:        models.StatusOnProcess,
		At:        models.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, p.Publish(context.Background(), "b1", ev))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "b1", string(fw.msgs[0].Key))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, "On Process", got["to"])
	assert.Equal(t, "2024-01-01T00:00:00.000000000Z", got["at"])
}

func TestPublish_WriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaProducerWithWriter(&fakeWriter{err: boom})
	assert.ErrorIs(t, p.Publish(context.Background(), "k", map[string]string{"a": "b"}), boom)
}

func TestNewKafkaProducer_BoundsLatency(t *testing.T) {
	w := newKafkaWriter("localhost:9092", "booking-events")
	assert.Equal(t, "booking-events", w.Topic)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.Equal(t, 5*time.Second, w.WriteTimeout)
}
