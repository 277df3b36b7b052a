package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_pos/internal/repository"
)

type mockEventSource struct {
	mu           sync.Mutex
	events       []*repository.OutboxEvent
	getErr       error
	markErr      error
	processedIDs []int64
}

func (m *mockEventSource) GetUnprocessedEvents(_ context.Context, _ int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	events := m.events
	m.events = nil
	return events, nil
}

func (m *mockEventSource) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processedIDs = append(m.processedIDs, id)
	return nil
}

func (m *mockEventSource) processed() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.processedIDs...)
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	writeErr error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error { return nil }

func (w *mockWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestPoller(repo EventSource, w messageWriter) *OutboxPoller {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name: "kafka-sales-test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &OutboxPoller{
		eventTick: 10 * time.Millisecond,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		breaker:   cb,
		log:       testLogger(),
	}
}

func TestOutboxPoller_PublishesAndMarksEvents(t *testing.T) {
	payload := json.RawMessage(`{"sale_id":"sale-123","total":25.5}`)
	repo := &mockEventSource{
		events: []*repository.OutboxEvent{
			{ID: 1, AggregateID: "sale-123", EventType: "sale.completed", Payload: payload, CreatedAt: time.Now()},
			{ID: 2, AggregateID: "sale-456", EventType: "sale.completed", Payload: payload, CreatedAt: time.Now()},
		},
	}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	msgs := writer.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "sale-123", string(msgs[0].Key))
	assert.Equal(t, []byte(payload), msgs[0].Value)
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)
	assert.Equal(t, "sale.completed", string(msgs[0].Headers[0].Value))

	assert.Equal(t, []int64{1, 2}, repo.processed())
}

func TestOutboxPoller_EventStaysUnprocessedWhenPublishFails(t *testing.T) {
	repo := &mockEventSource{
		events: []*repository.OutboxEvent{
			{ID: 7, AggregateID: "sale-7", EventType: "sale.completed", Payload: []byte(`{}`)},
		},
	}
	writer := &mockWriter{writeErr: errors.New("broker unavailable")}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.processed())
	assert.Empty(t, writer.written())
}

func TestOutboxPoller_FetchErrorIsHandled(t *testing.T) {
	repo := &mockEventSource{getErr: errors.New("database connection error")}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.written())
}

func TestOutboxPoller_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	writer := &mockWriter{writeErr: errors.New("broker unavailable")}
	repo := &mockEventSource{}
	poller := newTestPoller(repo, writer)

	event := &repository.OutboxEvent{ID: 1, AggregateID: "sale-1", EventType: "sale.completed", Payload: []byte(`{}`)}
	for i := 0; i < 3; i++ {
		err := poller.publish(context.Background(), event)
		require.Error(t, err)
	}

	// The breaker is open now and rejects without touching the writer.
	err := poller.publish(context.Background(), event)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestOutboxPoller_RunStopsOnContextCancel(t *testing.T) {
	repo := &mockEventSource{
		events: []*repository.OutboxEvent{
			{ID: 1, AggregateID: "sale-1", EventType: "sale.completed", Payload: []byte(`{}`)},
		},
	}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(writer.written()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
