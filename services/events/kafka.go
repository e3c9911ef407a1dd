package eventsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

const writeTimeout = 10 * time.Second

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	w      messageWriter
	logger core.Logger

	mu     sync.Mutex // guards closed & wg.Add
	closed bool
	wg     sync.WaitGroup
}

var _ core.EventPublisher = (*kafkaPublisher)(nil)

// NewKafkaPublisher publishes events as JSON on conf.Kafka.Topic, keyed by Event.Key.
func NewKafkaPublisher(conf *core.Config, logger core.Logger) *kafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(conf.Kafka.Brokers...),
		Topic:                  conf.Kafka.Topic,
		Balancer:               &kafka.Hash{}, // same key, same partition
		AllowAutoTopicCreation: true,
	}
	return &kafkaPublisher{w: w, logger: logger}
}

func toMessages(events []core.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.Key),
			Value:   value,
			Time:    e.OccurredAt,
			Headers: []kafka.Header{{Key: "event", Value: []byte(e.Name)}},
		})
	}
	return msgs, nil
}

func (p *kafkaPublisher) Publish(events ...core.Event) {
	msgs, err := toMessages(events)
	if err != nil {
		p.logger.Error("encoding events", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("publisher closed, dropping events", len(events))
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := p.w.WriteMessages(ctx, msgs...); err != nil {
			p.logger.Error("publishing events", err)
		}
	}()
}

// Close waits for the pending writes and closes the writer.
// Events published afterwards are dropped.
func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return p.w.Close()
}

type nopPublisher struct{}

// NewNopPublisher drops every event. Used when no broker is configured.
func NewNopPublisher() core.EventPublisher { return nopPublisher{} }

func (nopPublisher) Publish(...core.Event) {}

// Mock records the published events synchronously.
type Mock struct {
	mu        sync.Mutex
	published []core.Event
}

var _ core.EventPublisher = (*Mock)(nil)

func (m *Mock) Publish(events ...core.Event) {
	m.mu.Lock()
	m.published = append(m.published, events...)
	m.mu.Unlock()
}

func (m *Mock) Published() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]core.Event, len(m.published))
	copy(events, m.published)
	return events
}

func (m *Mock) Reset() {
	m.mu.Lock()
	m.published = nil
	m.mu.Unlock()
}
