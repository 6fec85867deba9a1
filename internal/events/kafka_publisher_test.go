package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order_ledger/internal/services"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_OrderCreated(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second}

	err := p.PublishOrderCreated(context.Background(), services.OrderCreatedEvent{
		EventID: "evt-1",
		OrderID: 42,
		IDOrder: "MAVC042",
		Price:   132000,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderCreated, string(msg.Headers[0].Value))

	var got services.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "MAVC042", got.IDOrder)
	assert.Equal(t, int64(132000), got.Price)
}

func TestKafkaPublisher_OrderArchived(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second}

	require.NoError(t, p.PublishOrderArchived(context.Background(), services.OrderArchivedEvent{OrderID: 7, MovedTo: "canceled", Refund: 200000}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, TypeOrderArchived, string(w.msgs[0].Headers[0].Value))
	assert.Contains(t, string(w.msgs[0].Value), `"moved_to":"canceled"`)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: kafka.LeaderNotAvailable}, timeout: time.Second}
	err := p.PublishOrderArchived(context.Background(), services.OrderArchivedEvent{OrderID: 7})
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}
