package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rentacar-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader hands out queued messages, then blocks until ctx is done
type scriptedReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newScriptedReader(msgs ...kafka.Message) *scriptedReader {
	return &scriptedReader{queue: msgs, drained: make(chan struct{})}
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	close(r.drained)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func testConsumer(r messageReader) *Consumer {
	return &Consumer{
		reader:     r,
		topic:      "payments",
		retryDelay: time.Millisecond,
		maxDelay:   4 * time.Millisecond,
		logger:     util.GetLogger(),
	}
}

func TestConsumerRetriesFailedMessageBeforeCommitting(t *testing.T) {
	reader := newScriptedReader(kafka.Message{Offset: 10}, kafka.Message{Offset: 11})
	c := testConsumer(reader)

	var handled []int64
	failures := 0
	handler := func(ctx context.Context, msg kafka.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 10 && failures < 1 {
			failures++
			return errors.New("connection reset")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.StartConsuming(ctx, handler) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain its messages")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []int64{10, 10, 11}, handled)
	assert.Equal(t, []int64{10, 11}, reader.committed)
}

func TestConsumerStopsRetryingOnCancel(t *testing.T) {
	reader := newScriptedReader(kafka.Message{Offset: 3})
	c := testConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	handler := func(ctx context.Context, msg kafka.Message) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("database unavailable")
	}

	err := c.StartConsuming(ctx, handler)

	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, attempts, 3)
	assert.Empty(t, reader.committed)
}
