package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
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

// fakeReader serves queued messages, then reports io.EOF as a closed reader does
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

// ============================================
// Producer Tests
// ============================================

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "orders"}

	err := p.Publish(context.Background(), "order-1", map[string]string{"event_type": "OrderPlaced"})

	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("order-1"), w.messages[0].Key)
	assert.JSONEq(t, `{"event_type":"OrderPlaced"}`, string(w.messages[0].Value))
	assert.False(t, w.messages[0].Time.IsZero())
}

func TestProducer_PublishErrors(t *testing.T) {
	broker := errors.New("broker down")
	p := &Producer{writer: &fakeWriter{err: broker}, topic: "orders"}

	err := p.Publish(context.Background(), "order-1", struct{}{})
	assert.ErrorIs(t, err, broker)
	assert.Contains(t, err.Error(), "orders")

	var unsupported *json.UnsupportedTypeError
	err = p.Publish(context.Background(), "order-1", make(chan int))
	assert.ErrorAs(t, err, &unsupported)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, (&Producer{writer: w}).Close())
	assert.True(t, w.closed)
}

// ============================================
// Consumer Tests
// ============================================

func TestConsumer_HandlesAndCommitsEveryMessage(t *testing.T) {
	r := &fakeReader{
		queue: []kafka.Message{
			{Key: []byte("a"), Value: []byte("1"), Offset: 10},
			{Key: []byte("b"), Value: []byte("2"), Offset: 11},
			{Key: []byte("c"), Value: []byte("3"), Offset: 12},
		},
		fetchErrs: []error{errors.New("rebalancing")},
	}
	c := &Consumer{reader: r, name: "test"}

	var keys []string
	err := c.Consume(context.Background(), func(ctx context.Context, key, value []byte) error {
		keys = append(keys, string(key))
		if string(key) == "b" {
			return errors.New("cannot handle")
		}
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []int64{10, 11, 12}, r.committed)
}

func TestConsumer_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeReader{fetchErrs: []error{context.Canceled}}
	c := &Consumer{reader: r, name: "test"}

	err := c.Consume(ctx, func(ctx context.Context, key, value []byte) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}
