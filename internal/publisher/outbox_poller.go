package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/fjod/go_pos/internal/repository"
)

// EventSource is the slice of the sales repository the poller needs.
type EventSource interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller drains the sales_outbox table into Kafka. Events stay in the
// table until the broker acknowledges them, so delivery is at-least-once and
// consumers must dedupe on event id.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      EventSource
	writer    messageWriter
	breaker   *gobreaker.CircuitBreaker[any]
	log       *logrus.Logger
}

func NewOutboxPoller(repo EventSource, log *logrus.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "pos-sales",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "kafka-sales",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &OutboxPoller{
		eventTick: time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		breaker:   cb,
		log:       log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.WithError(err).Error("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.WithError(err).WithField("event_id", event.ID).Error("failed to publish outbox event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.WithError(err).WithField("event_id", event.ID).Error("failed to mark outbox event as processed")
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // sale id for partition ordering
		Value: event.Payload,             // already JSON from the outbox row
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	return err
}
